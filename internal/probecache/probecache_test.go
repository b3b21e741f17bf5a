package probecache

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"edv/pkg/encoder"
	"edv/pkg/timecode"
)

func TestProbeCachesOnSizeAndMtime(t *testing.T) {
	dir := t.TempDir()
	mediaPath := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(mediaPath, []byte("fake-media"), 0o600))

	cache, err := Open(filepath.Join(dir, "probecache.db"))
	require.NoError(t, err)
	defer cache.Close()

	fake := &encoder.Fake{ProbeResult: map[string]encoder.MediaInfo{
		mediaPath: {Duration: timecode.DurationFromSeconds(5)},
	}}

	info, err := cache.Probe(context.Background(), fake, mediaPath)
	require.NoError(t, err)
	require.Equal(t, 5.0, info.Duration.Seconds())

	// Second probe must hit the cache, not the encoder: break the fake
	// so any live call would fail.
	fake.ProbeErr = encoder.ErrFakeProbe
	info, err = cache.Probe(context.Background(), fake, mediaPath)
	require.NoError(t, err)
	require.Equal(t, 5.0, info.Duration.Seconds())
}

func TestProbeInvalidatesOnRewrite(t *testing.T) {
	dir := t.TempDir()
	mediaPath := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(mediaPath, []byte("v1"), 0o600))

	cache, err := Open(filepath.Join(dir, "probecache.db"))
	require.NoError(t, err)
	defer cache.Close()

	fake := &encoder.Fake{ProbeResult: map[string]encoder.MediaInfo{
		mediaPath: {Duration: timecode.DurationFromSeconds(1)},
	}}
	_, err = cache.Probe(context.Background(), fake, mediaPath)
	require.NoError(t, err)

	// Rewrite with a different size so (size, mtime) no longer matches.
	require.NoError(t, os.WriteFile(mediaPath, []byte("a much longer rewrite"), 0o600))
	fake.ProbeResult[mediaPath] = encoder.MediaInfo{Duration: timecode.DurationFromSeconds(9)}

	info, err := cache.Probe(context.Background(), fake, mediaPath)
	require.NoError(t, err)
	require.Equal(t, 9.0, info.Duration.Seconds())
}
