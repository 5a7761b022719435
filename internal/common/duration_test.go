package common

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDurationYAML(t *testing.T) {
	var holder struct {
		Pause Duration `yaml:"pause"`
	}

	require.NoError(t, yaml.Unmarshal([]byte("pause: 1h30m"), &holder))
	require.Equal(t, 90*time.Minute, holder.Pause.Duration)

	require.Error(t, yaml.Unmarshal([]byte("pause: not-a-duration"), &holder))
}

func TestDurationJSON(t *testing.T) {
	var holder struct {
		Pause Duration `json:"pause"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"pause": "200ms"}`), &holder))
	require.Equal(t, 200*time.Millisecond, holder.Pause.Duration)

	// Bare numbers are nanoseconds.
	require.NoError(t, json.Unmarshal([]byte(`{"pause": 1000000000}`), &holder))
	require.Equal(t, time.Second, holder.Pause.Duration)

	require.Error(t, json.Unmarshal([]byte(`{"pause": true}`), &holder))

	out, err := json.Marshal(NewDuration(90 * time.Minute))
	require.NoError(t, err)
	require.JSONEq(t, `"1h30m0s"`, string(out))
}

func TestDurationTOML(t *testing.T) {
	var holder struct {
		Pause Duration `toml:"pause"`
	}

	require.NoError(t, toml.Unmarshal([]byte(`pause = "45s"`), &holder))
	require.Equal(t, 45*time.Second, holder.Pause.Duration)
}
