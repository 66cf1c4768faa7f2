// Copyright 2026 The ikv Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package ikvprom

import (
	"bytes"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpowers/ikv"
)

func TestCollector(t *testing.T) {
	var buf bytes.Buffer
	w := ikv.NewWriter(&buf, ikv.SizeAware)
	require.NoError(t, w.Write(1, []byte("one")))
	require.NoError(t, w.Write(2, []byte("two")))
	require.NoError(t, w.Close())

	r, err := ikv.NewReader(ikv.BytesSource(buf.Bytes()), ikv.SizeAware)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	_, _, _ = r.Get(1)
	_, _, _ = r.Get(3)

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(NewCollector("users", r)))

	families, err := reg.Gather()
	require.NoError(t, err)

	values := make(map[string]float64)
	for _, mf := range families {
		require.Len(t, mf.GetMetric(), 1)
		m := mf.GetMetric()[0]
		require.Len(t, m.GetLabel(), 1)
		assert.Equal(t, "store", m.GetLabel()[0].GetName())
		assert.Equal(t, "users", m.GetLabel()[0].GetValue())
		if m.GetGauge() != nil {
			values[mf.GetName()] = m.GetGauge().GetValue()
		} else {
			values[mf.GetName()] = m.GetCounter().GetValue()
		}
	}

	assert.Equal(t, map[string]float64{
		"ikv_reader_entries":       2,
		"ikv_reader_data_bytes":    6,
		"ikv_reader_index_bytes":   32,
		"ikv_reader_lookups_total": 2,
		"ikv_reader_hits_total":    1,
		"ikv_reader_misses_total":  1,
	}, values)

	// a second collector for the same store name is rejected
	assert.Error(t, reg.Register(NewCollector("users", r)))
	assert.NoError(t, reg.Register(NewCollector("orders", r)))
}
