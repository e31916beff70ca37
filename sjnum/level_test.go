package sjnum_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spanjson/spanjson-go/sjnum"
)

func TestLevelStrings(t *testing.T) {
	levels := []sjnum.Level{
		sjnum.TraceLevel,
		sjnum.DebugLevel,
		sjnum.InfoLevel,
		sjnum.WarnLevel,
		sjnum.ErrorLevel,
	}
	for i, level := range levels {
		parsed, err := sjnum.LevelString(level.String())
		require.NoErrorf(t, err, "level %s", level)
		assert.Equal(t, level, parsed)
		if i > 0 {
			assert.Greater(t, level, levels[i-1], "severity must be ordered")
		}
	}
	assert.Equal(t, "LEVEL(3)", sjnum.Level(3).String())
	_, err := sjnum.LevelString("info")
	assert.Error(t, err)
}
