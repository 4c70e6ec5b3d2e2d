package tickers

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Precedence(t *testing.T) {
	tests := []struct {
		input string
		want  Kind
	}{
		{"F@GDP", KindFull},
		{"CCSV@10100002|v86822808", KindFull},
		{"@|", KindFull},
		{"GDP|nominal", KindDataType},
		{"|", KindDataType},
		{"GDP", KindLocal},
		{"us gdp", KindLocal},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.input == "@|" {
				// contains the separator but has empty halves
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidTicker))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Kind())
			assert.Equal(t, tt.input, got.String())
		})
	}
}

func TestParse_Empty(t *testing.T) {
	_, err := Parse("")
	require.Error(t, err)

	var ite *InvalidTickerError
	require.True(t, errors.As(err, &ite))
	assert.Equal(t, "", ite.Input)
	assert.True(t, errors.Is(err, ErrInvalidTicker))
}

func TestParse_ExactlyOneKind(t *testing.T) {
	inputs := []string{"a", "a|b", "a@b", "a@b|c", "x|y|z", "p@q@r"}
	for _, in := range inputs {
		got, err := Parse(in)
		require.NoError(t, err, in)

		matches := 0
		if _, ok := got.(FullTicker); ok {
			matches++
		}
		if _, ok := got.(DataTypeTicker); ok {
			matches++
		}
		if _, ok := got.(LocalTicker); ok {
			matches++
		}
		assert.Equal(t, 1, matches, in)
	}
}

func TestSplitComposeRoundTrip(t *testing.T) {
	cases := []struct{ p, q string }{
		{"F", "GDP"},
		{"CCSV", "10100002|v86822808"},
		{"D", "AMECO/ZUTN/EA19.1.0.0.0.ZUTN"},
		{"TEST", "a@b"},
		{"x|y", "q"},
	}
	for _, c := range cases {
		p, err := NewProviderCode(c.p)
		require.NoError(t, err)
		q, err := NewQueryTicker(c.q)
		require.NoError(t, err)

		full, err := Compose(p, q)
		require.NoError(t, err)

		gp, gq := Split(full)
		assert.Equal(t, p, gp)
		assert.Equal(t, q, gq)

		sp, sq, err := SplitString(full.String())
		require.NoError(t, err)
		assert.Equal(t, p, sp)
		assert.Equal(t, q, sq)
	}
}

func TestSplitString_Errors(t *testing.T) {
	for _, in := range []string{"GDP", "", "@GDP", "F@"} {
		_, _, err := SplitString(in)
		assert.ErrorIs(t, err, ErrInvalidTicker, in)
	}
}

func TestCompose_RejectsZero(t *testing.T) {
	q, _ := NewQueryTicker("GDP")
	_, err := Compose(ProviderCode{}, q)
	assert.ErrorIs(t, err, ErrInvalidTicker)

	p, _ := NewProviderCode("F")
	_, err = Compose(p, QueryTicker{})
	assert.ErrorIs(t, err, ErrInvalidTicker)
}

func TestConstructors(t *testing.T) {
	_, err := NewLocalTicker("F@GDP")
	assert.ErrorIs(t, err, ErrInvalidTicker)

	_, err = NewProviderCode("F@X")
	assert.ErrorIs(t, err, ErrInvalidTicker)

	_, err = NewDataTypeTicker("GDP")
	assert.ErrorIs(t, err, ErrInvalidTicker)

	_, err = NewDataTypeTicker("A@B|C")
	assert.ErrorIs(t, err, ErrInvalidTicker)

	_, err = NewQueryTicker("")
	assert.ErrorIs(t, err, ErrInvalidTicker)

	q, err := NewQueryTicker("table|vector")
	require.NoError(t, err)
	assert.Equal(t, "table|vector", q.String())
}

func TestKindsNeverEqual(t *testing.T) {
	local, _ := NewLocalTicker("GDP")
	code, _ := NewProviderCode("GDP")
	var a, b Ticker = local, code
	assert.NotEqual(t, a, b)
	assert.Equal(t, a.String(), b.String())
}

func TestDataTypeParts(t *testing.T) {
	dt, err := NewDataTypeTicker("CAN|unemployment|sa")
	require.NoError(t, err)
	entity, datatype := dt.Parts()
	assert.Equal(t, "CAN", entity)
	assert.Equal(t, "unemployment|sa", datatype)
}

func TestTextMarshalling(t *testing.T) {
	type holder struct {
		Full  FullTicker     `json:"full"`
		Local LocalTicker    `json:"local"`
		DT    DataTypeTicker `json:"dt"`
	}
	in := holder{Full: MustFull("F@GDP")}
	in.Local, _ = NewLocalTicker("gdp")

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"full":"F@GDP","local":"gdp","dt":""}`, string(data))

	var out holder
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
	assert.True(t, out.DT.IsZero())

	err = json.Unmarshal([]byte(`{"full":"no-separator"}`), &out)
	assert.ErrorIs(t, err, ErrInvalidTicker)
}

func TestMustFullPanics(t *testing.T) {
	assert.Panics(t, func() { MustFull("GDP") })
}
