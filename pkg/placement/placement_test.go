package placement

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llm-d-incubation/video-cache-optimizer/pkg/core"
	"github.com/llm-d-incubation/video-cache-optimizer/pkg/formulation"
	"github.com/llm-d-incubation/video-cache-optimizer/pkg/loader"
	"github.com/llm-d-incubation/video-cache-optimizer/pkg/mip"
)

const example = `5 2 4 3 100
50 50 80 30 110
1000 3
0 100
2 200
1 300
500 0
3 0 1500
0 1 1000
4 0 500
1 0 1000
`

func exampleInstance(t *testing.T) *core.ProblemInstance {
	t.Helper()
	inst, err := loader.Read(strings.NewReader(example), loader.Options{})
	require.NoError(t, err)
	return inst
}

func build(t *testing.T, inst *core.ProblemInstance) (*mip.Problem, *formulation.Formulation) {
	t.Helper()
	p := mip.NewProblem("videos")
	f, err := formulation.Build(inst, p)
	require.NoError(t, err)
	return p, f
}

func TestNewPlan(t *testing.T) {
	p := NewPlan(map[int][]int{2: {4, 1, 1}, 0: {3}, 1: {}})
	want := []CacheAssignment{{Cache: 0, Videos: []int{3}}, {Cache: 2, Videos: []int{1, 4}}}
	if diff := cmp.Diff(want, p.Assignments()); diff != "" {
		t.Errorf("assignments mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2, p.NumCaches())
	assert.Equal(t, 3, p.NumPlacements())
	assert.True(t, p.Has(4, 2))
	assert.False(t, p.Has(4, 0))
	assert.False(t, p.Has(0, 1))
	assert.Nil(t, p.Videos(1))
	assert.Equal(t, "Plan: caches=2; placements=3; 0:[3]; 2:[1 4]", p.String())
}

func TestDecode(t *testing.T) {
	inst := exampleInstance(t)
	_, f := build(t, inst)

	tests := []struct {
		name     string
		selected map[formulation.PlacementKey]float64
		want     []CacheAssignment
	}{
		{
			name: "pairs grouped by cache",
			selected: map[formulation.PlacementKey]float64{
				{Video: 2, Cache: 0}: 1, {Video: 3, Cache: 1}: 1, {Video: 1, Cache: 1}: 1,
				{Video: 1, Cache: 2}: 1, {Video: 0, Cache: 2}: 1,
			},
			want: []CacheAssignment{
				{Cache: 0, Videos: []int{2}}, {Cache: 1, Videos: []int{1, 3}}, {Cache: 2, Videos: []int{0, 1}},
			},
		},
		{
			name:     "empty caches omitted",
			selected: map[formulation.PlacementKey]float64{{Video: 4, Cache: 2}: 1},
			want:     []CacheAssignment{{Cache: 2, Videos: []int{4}}},
		},
		{
			name: "selection threshold",
			selected: map[formulation.PlacementKey]float64{
				{Video: 0, Cache: 0}: 0.5, {Video: 1, Cache: 0}: 0.9999, {Video: 2, Cache: 0}: 0.5001,
				{Video: 3, Cache: 0}: 1e-7,
			},
			want: []CacheAssignment{{Cache: 0, Videos: []int{1, 2}}},
		},
		{
			name: "nothing selected",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := make([]float64, f.NumVars())
			for key, v := range tt.selected {
				x, ok := f.X(key.Video, key.Cache)
				require.True(t, ok)
				values[x] = v
			}
			// service variables never affect the plan
			for _, key := range f.ServiceKeys() {
				y, _ := f.Y(key.Request, key.Cache)
				values[y] = 1
			}
			plan, err := Decode(inst, f, values)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, plan.Assignments()); diff != "" {
				t.Errorf("plan mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeShortValues(t *testing.T) {
	inst := exampleInstance(t)
	_, f := build(t, inst)
	_, err := Decode(inst, f, make([]float64, 3))
	assert.Error(t, err)
}

func TestEncodeRoundTrip(t *testing.T) {
	inst := exampleInstance(t)
	p, f := build(t, inst)
	plan := NewPlan(map[int][]int{0: {2}, 1: {3, 1}, 2: {0, 1}})

	values, err := Encode(inst, f, plan, p.NumVars())
	require.NoError(t, err)
	assert.True(t, p.Feasible(values, 1e-9))
	assert.InDelta(t, float64(Objective(inst, plan)), p.Evaluate(values), 1e-9)

	// request 3 (video 1 at endpoint 0) is served from cache 2, the closer of the two holding it
	y2, _ := f.Y(3, 2)
	y1, _ := f.Y(3, 1)
	assert.Equal(t, 1.0, values[y2])
	assert.Equal(t, 0.0, values[y1])

	decoded, err := Decode(inst, f, values)
	require.NoError(t, err)
	assert.Equal(t, plan.Assignments(), decoded.Assignments())

	_, err = Encode(inst, f, NewPlan(map[int][]int{7: {0}}), p.NumVars())
	assert.ErrorIs(t, err, ErrInvalidPlan)
}

func TestValidate(t *testing.T) {
	inst := exampleInstance(t)
	tests := []struct {
		name    string
		plan    *Plan
		wantErr error
	}{
		{name: "example solution", plan: NewPlan(map[int][]int{0: {2}, 1: {3, 1}, 2: {0, 1}})},
		{name: "exactly full", plan: NewPlan(map[int][]int{0: {0, 1}})},
		{name: "empty", plan: NewPlan(nil)},
		{name: "over capacity", plan: NewPlan(map[int][]int{1: {0, 1, 3}}), wantErr: ErrCapacityExceeded},
		{name: "video larger than cache", plan: NewPlan(map[int][]int{0: {4}}), wantErr: ErrCapacityExceeded},
		{name: "unknown cache", plan: NewPlan(map[int][]int{3: {0}}), wantErr: ErrInvalidPlan},
		{name: "unknown video", plan: NewPlan(map[int][]int{0: {5}}), wantErr: ErrInvalidPlan},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.plan.Validate(inst)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Equal(t, 80, NewPlan(map[int][]int{1: {3, 1}}).UsedCapacity(inst, 1))
}

func TestScore(t *testing.T) {
	inst := exampleInstance(t)
	tests := []struct {
		name      string
		plan      *Plan
		score     int
		objective int
	}{
		{name: "example solution", plan: NewPlan(map[int][]int{0: {2}, 1: {3, 1}, 2: {0, 1}}), score: 462500, objective: 1850000},
		{name: "empty plan", plan: NewPlan(nil), score: 0, objective: 0},
		{name: "unreachable endpoint", plan: NewPlan(map[int][]int{0: {0}}), score: 0, objective: 0},
		{name: "best cache wins", plan: NewPlan(map[int][]int{0: {3}, 1: {3}}), score: 337500, objective: 1350000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.score, Score(inst, tt.plan))
			assert.Equal(t, tt.objective, Objective(inst, tt.plan))
		})
	}
}

func TestWriteAndRead(t *testing.T) {
	plan := NewPlan(map[int][]int{2: {1, 0}, 0: {2}, 1: {3, 1}})
	var buf bytes.Buffer
	require.NoError(t, plan.Write(&buf))
	assert.Equal(t, "3\n0 2\n1 1 3\n2 0 1\n", buf.String())

	back, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, plan.Assignments(), back.Assignments())

	buf.Reset()
	require.NoError(t, NewPlan(nil).Write(&buf))
	assert.Equal(t, "0\n", buf.String())
}

func TestReadMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "empty", data: ""},
		{name: "two tokens in header", data: "1 2\n0 1\n"},
		{name: "missing cache line", data: "2\n0 1\n"},
		{name: "not an integer", data: "1\n0 a\n"},
		{name: "negative id", data: "1\n0 -1\n"},
		{name: "duplicate cache", data: "2\n0 1\n0 2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.data))
			assert.ErrorIs(t, err, ErrInvalidPlan)
		})
	}
}

func TestWriteFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/out", 0o755))
	plan := NewPlan(map[int][]int{0: {0}})

	require.NoError(t, WriteFile(fs, "/out/videos.out", plan))
	data, err := afero.ReadFile(fs, "/out/videos.out")
	require.NoError(t, err)
	assert.Equal(t, "1\n0 0\n", string(data))

	entries, err := afero.ReadDir(fs, "/out")
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")

	back, err := ReadFile(fs, "/out/videos.out")
	require.NoError(t, err)
	assert.Equal(t, plan.Assignments(), back.Assignments())

	_, err = ReadFile(fs, "/out/missing.out")
	assert.Error(t, err)
}
