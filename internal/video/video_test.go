package video

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProbe(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		w, h    int
		d       float64
		wantErr bool
	}{
		{
			name: "stream duration",
			out:  "width=1080\nheight=1920\nduration=12.500000\nduration=12.540000\n",
			w:    1080, h: 1920, d: 12.5,
		},
		{
			name: "format duration fallback",
			out:  "width=720\nheight=1280\nduration=N/A\nduration=30.1\n",
			w:    720, h: 1280, d: 30.1,
		},
		{
			name:    "no video stream",
			out:     "duration=3.0\n",
			wantErr: true,
		},
		{
			name:    "empty",
			out:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h, d, err := parseProbe(tt.out)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidProbe)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.w, w)
			assert.Equal(t, tt.h, h)
			assert.InDelta(t, tt.d, d, 0.0001)
		})
	}
}

func TestClipCleanup(t *testing.T) {
	dir, err := os.MkdirTemp("", "clip_test")
	require.NoError(t, err)

	c := &Clip{tmpDir: dir}
	c.Cleanup()

	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))

	var nilClip *Clip
	assert.NotPanics(t, nilClip.Cleanup)
}
