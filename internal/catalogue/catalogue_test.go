package catalogue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/cxfgo/internal/block"
	"github.com/vk/cxfgo/internal/clock"
)

// probe is a minimal stateless block for registry tests.
type probe struct {
	block.Stateless
	gain float64
}

func (p *probe) Spec() block.Spec {
	return block.Spec{Inputs: []string{"u"}, Outputs: []string{"y"}}
}

func (p *probe) Evaluate(in map[string]cty.Value) (map[string]cty.Value, error) {
	u, err := block.NumIn(in, "u")
	if err != nil {
		return nil, err
	}
	return map[string]cty.Value{"y": block.NumVal(p.gain * u)}, nil
}

type probeModule struct{}

func (probeModule) Register(r *Registry) {
	two := cty.NumberIntVal(2)
	r.Register(&Entry{
		Type: "Test.CDL.Probe",
		Params: []ParamSpec{
			{Name: "gain", Type: cty.Number, Default: &two},
			{Name: "required", Type: cty.Number},
		},
		Inputs:  []string{"u"},
		Outputs: []string{"y"},
		New: func(bc Context) (block.Block, error) {
			gain, err := bc.Float("gain")
			if err != nil {
				return nil, err
			}
			return &probe{gain: gain}, nil
		},
	})
	r.Register(&Entry{
		Type:     "Test.CDL.Clocked",
		Inputs:   []string{"u"},
		Outputs:  []string{"y"},
		Stateful: true,
		Clocked:  true,
		New: func(bc Context) (block.Block, error) {
			return &probe{gain: 1}, nil
		},
	})
}

func TestRegistry(t *testing.T) {
	r := New(probeModule{})

	t.Run("lookup", func(t *testing.T) {
		e, ok := r.Lookup("Test.CDL.Probe")
		require.True(t, ok)
		assert.Equal(t, "Test.CDL.Probe", e.Type)

		_, ok = r.Lookup("Test.CDL.Missing")
		assert.False(t, ok)
	})

	t.Run("types are sorted", func(t *testing.T) {
		assert.Equal(t, []string{"Test.CDL.Clocked", "Test.CDL.Probe"}, r.Types())
	})

	t.Run("duplicate registration panics", func(t *testing.T) {
		assert.Panics(t, func() {
			r.Register(&Entry{Type: "Test.CDL.Probe"})
		})
	})
}

func TestEntryAccessors(t *testing.T) {
	r := New(probeModule{})
	e, ok := r.Lookup("Test.CDL.Probe")
	require.True(t, ok)

	assert.NotNil(t, e.Param("gain"))
	assert.Nil(t, e.Param("dne"))
	assert.True(t, e.HasInput("u"))
	assert.False(t, e.HasInput("y"))
	assert.True(t, e.HasOutput("y"))
	assert.False(t, e.HasOutput("u"))
}

func TestValidateParams(t *testing.T) {
	r := New(probeModule{})
	e, _ := r.Lookup("Test.CDL.Probe")

	assert.NoError(t, e.ValidateParams(map[string]cty.Value{"gain": cty.NumberIntVal(3)}))
	assert.ErrorContains(t, e.ValidateParams(map[string]cty.Value{"dne": cty.NumberIntVal(3)}),
		`has no parameter "dne"`)
	assert.ErrorContains(t, e.ValidateParams(map[string]cty.Value{"gain": cty.True}),
		"cannot convert")
}

func TestNewBlock(t *testing.T) {
	r := New(probeModule{})
	required := map[string]cty.Value{"required": cty.NumberIntVal(0)}

	t.Run("applies defaults", func(t *testing.T) {
		blk, err := r.NewBlock("Test.CDL.Probe", required, nil)
		require.NoError(t, err)
		out, err := blk.Evaluate(map[string]cty.Value{"u": cty.NumberIntVal(5)})
		require.NoError(t, err)
		got, err := block.Num(out["y"])
		require.NoError(t, err)
		assert.Equal(t, 10.0, got, "default gain of 2 applies")
	})

	t.Run("explicit value overrides default", func(t *testing.T) {
		params := map[string]cty.Value{"gain": cty.NumberIntVal(7), "required": cty.NumberIntVal(0)}
		blk, err := r.NewBlock("Test.CDL.Probe", params, nil)
		require.NoError(t, err)
		out, err := blk.Evaluate(map[string]cty.Value{"u": cty.NumberIntVal(1)})
		require.NoError(t, err)
		got, err := block.Num(out["y"])
		require.NoError(t, err)
		assert.Equal(t, 7.0, got)
	})

	t.Run("missing required parameter", func(t *testing.T) {
		_, err := r.NewBlock("Test.CDL.Probe", nil, nil)
		assert.ErrorContains(t, err, `missing required parameter "required"`)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := r.NewBlock("Test.CDL.Missing", nil, nil)
		assert.ErrorContains(t, err, "unknown elementary block type")
	})

	t.Run("undeclared parameter", func(t *testing.T) {
		_, err := r.NewBlock("Test.CDL.Probe", map[string]cty.Value{"dne": cty.NumberIntVal(1)}, nil)
		assert.ErrorContains(t, err, `has no parameter "dne"`)
	})

	t.Run("clocked block requires a time source", func(t *testing.T) {
		_, err := r.NewBlock("Test.CDL.Clocked", nil, nil)
		assert.ErrorContains(t, err, "requires a time source")

		clk, err := clock.NewLogical(0, 1)
		require.NoError(t, err)
		_, err = r.NewBlock("Test.CDL.Clocked", nil, clk)
		assert.NoError(t, err)
	})
}

func TestContextAccessors(t *testing.T) {
	bc := Context{Parameters: map[string]cty.Value{
		"f": cty.NumberFloatVal(1.5),
		"i": cty.NumberIntVal(3),
		"b": cty.True,
	}}

	f, err := bc.Float("f")
	require.NoError(t, err)
	assert.Equal(t, 1.5, f)

	i, err := bc.Int("i")
	require.NoError(t, err)
	assert.Equal(t, int64(3), i)

	b, err := bc.Bool("b")
	require.NoError(t, err)
	assert.True(t, b)

	_, err = bc.Float("dne")
	assert.ErrorContains(t, err, "has no value")
}
