/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestTimeDuration_Unmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    TimeDuration
		wantErr bool
	}{
		{name: "string", input: "1s", want: TimeDuration(time.Second)},
		{name: "compound string", input: "1m30s", want: TimeDuration(90 * time.Second)},
		{name: "nanoseconds", input: "1000", want: TimeDuration(time.Microsecond)},
		{name: "negative", input: "-5", wantErr: true},
		{name: "garbage", input: "soon", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fromYAML struct {
				Window TimeDuration `yaml:"window"`
			}
			yamlErr := yaml.Unmarshal([]byte("window: "+tt.input), &fromYAML)

			var fromJSON struct {
				Window TimeDuration `json:"window"`
			}
			jsonErr := json.Unmarshal([]byte(`{"window":"`+tt.input+`"}`), &fromJSON)

			var fromText TimeDuration
			textErr := fromText.UnmarshalText([]byte(tt.input))

			if tt.wantErr {
				require.Error(t, yamlErr)
				require.Error(t, jsonErr)
				require.Error(t, textErr)
				return
			}
			require.NoError(t, yamlErr)
			require.NoError(t, jsonErr)
			require.NoError(t, textErr)
			require.Equal(t, tt.want, fromYAML.Window)
			require.Equal(t, tt.want, fromJSON.Window)
			require.Equal(t, tt.want, fromText)
		})
	}
}

func TestTimeDuration_Marshal(t *testing.T) {
	d := TimeDuration(1500 * time.Millisecond)
	require.Equal(t, "1.5s", d.String())

	data, err := json.Marshal(struct {
		Window TimeDuration `json:"window"`
	}{d})
	require.NoError(t, err)
	require.JSONEq(t, `{"window":"1.5s"}`, string(data))

	data, err = yaml.Marshal(struct {
		Window TimeDuration `yaml:"window"`
	}{d})
	require.NoError(t, err)
	require.Equal(t, "window: 1.5s\n", string(data))
}

func TestByteSize_Unmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ByteSize
		wantErr bool
	}{
		{name: "integer", input: "2048", want: 2048},
		{name: "human-readable", input: "64KB", want: 64 * 1024},
		{name: "k8s suffix", input: "1Mi", want: 1024 * 1024},
		{name: "negative", input: "-1", wantErr: true},
		{name: "garbage", input: "lots", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fromYAML struct {
				Size ByteSize `yaml:"size"`
			}
			yamlErr := yaml.Unmarshal([]byte("size: "+tt.input), &fromYAML)

			var fromJSON struct {
				Size ByteSize `json:"size"`
			}
			jsonErr := json.Unmarshal([]byte(`{"size":"`+tt.input+`"}`), &fromJSON)

			if tt.wantErr {
				require.Error(t, yamlErr)
				require.Error(t, jsonErr)
				return
			}
			require.NoError(t, yamlErr)
			require.NoError(t, jsonErr)
			require.Equal(t, tt.want, fromYAML.Size)
			require.Equal(t, tt.want, fromJSON.Size)
		})
	}
}

func TestByteSize_String(t *testing.T) {
	require.Equal(t, "1M", ByteSize(1024*1024).String())

	data, err := json.Marshal(ByteSize(64 * 1024))
	require.NoError(t, err)
	require.Equal(t, `"64K"`, string(data))
}
