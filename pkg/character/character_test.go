package character

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		input   string
		want    Status
		wantErr bool
	}{
		{"", StatusAll, false},
		{"all", StatusAll, false},
		{"Alive", StatusAlive, false},
		{" DEAD ", StatusDead, false},
		{"unknown", StatusUnknown, false},
		{"Unknown", StatusUnknown, false},
		{"zombie", StatusAll, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseStatus(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "zombie")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatus_NextCycles(t *testing.T) {
	s := StatusAll
	var seen []Status
	for range Statuses {
		s = s.Next()
		seen = append(seen, s)
	}

	assert.Equal(t, []Status{StatusAlive, StatusDead, StatusUnknown, StatusAll}, seen)
	assert.Equal(t, StatusAll, Status("bogus").Next())
}

func TestStatus_Key(t *testing.T) {
	assert.Equal(t, "all", StatusAll.Key())
	assert.Equal(t, "alive", StatusAlive.Key())
	assert.Equal(t, "dead", StatusDead.Key())
	assert.Equal(t, "unknown", StatusUnknown.Key())
}

func TestFilter_Normalize(t *testing.T) {
	f := Filter{Status: StatusDead, Species: "  Human\t"}

	assert.Equal(t, Filter{Status: StatusDead, Species: "Human"}, f.Normalize())
	assert.Equal(t, "  Human\t", f.Species, "Normalize must not modify the receiver")
	assert.True(t, Filter{Species: "Alien "}.Normalize() == Filter{Species: "Alien"})
}

func TestFilter_String(t *testing.T) {
	assert.Equal(t, `status="Alive" species="Human"`, Filter{Status: StatusAlive, Species: "Human"}.String())
	assert.Equal(t, `status="" species=""`, Filter{}.String())
}
