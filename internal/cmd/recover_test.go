package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/borisrec/internal/export"
	"github.com/harrison/borisrec/internal/models"
	"github.com/harrison/borisrec/internal/writer"
)

const standardExport = `Observation id,Observation date,Media file name,Media duration (s),FPS,Subject,Behavior,Behavioral category,Modifier #1,Comment,Time,Behavior type,Image index
obs1,2024-03-01,video.mp4,600.0,25,A,walk,Locomotion,,NA,1.5,POINT,38
obs1,2024-03-01,video.mp4,600.0,25,B,rest,,posture 1,sleeping,2.0,START,50
obs1,2024-03-01,video.mp4,600.0,25,A,walk,Locomotion,,NA,3.5,POINT,
`

const aggregatedExport = `Observation id,Observation date,Media file name,Media duration (s),FPS (frame/s),Subject,Behavior,Behavioral category,Modifier #1,Behavior type,Start (s),Stop (s),Comment start
obs1,2024-03-01,a.mp4,300.0,25,A,walk,Locomotion,,POINT,1.5,1.5,
obs2,2024-03-02,b.mp4,400.0,30,B,rest,Inactivity,shade,STATE,2.0,10.0,
obs1,2024-03-01,a.mp4,300.0,25,B,walk,Locomotion,,POINT,4.0,4.0,
`

// writeExport drops a CSV fixture into a temp directory and returns its path.
func writeExport(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs a command with args, capturing stdout and stderr.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// loadProject reads a written .boris file back into the document model.
func loadProject(t *testing.T, path string) *models.Project {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var p models.Project
	require.NoError(t, json.Unmarshal(data, &p))
	return &p
}

func TestRecoverStandardExport(t *testing.T) {
	input := writeExport(t, "export.csv", standardExport)
	output := writer.OutputPath(input)

	stdout, _, err := execute(t, NewRecoverCommand(), input)
	require.NoError(t, err)

	p := loadProject(t, output)
	require.NoError(t, p.Validate())

	assert.Len(t, p.Subjects, 2)
	assert.Len(t, p.Behaviors, 2)
	require.Len(t, p.Observations, 1)

	obs := p.Observations["obs1"]
	require.Len(t, obs.Events, 3)
	assert.Equal(t, 1.5, obs.Events[0].Time)
	assert.Equal(t, 2.0, obs.Events[1].Time)
	assert.Equal(t, 3.5, obs.Events[2].Time)

	assert.Equal(t, "obs1", p.Name)
	assert.Equal(t, "7.0", p.FormatVersion)

	assert.Contains(t, stdout, "Detected standard export layout")
	assert.Contains(t, stdout, "Recovered 2 subjects, 2 behaviors, 1 observations")
	assert.Contains(t, stdout, "Restored: "+output)
}

func TestRecoverAggregatedSplitsObservations(t *testing.T) {
	input := writeExport(t, "export.csv", aggregatedExport)

	_, _, err := execute(t, NewRecoverCommand(), input)
	require.NoError(t, err)

	p := loadProject(t, writer.OutputPath(input))
	require.NoError(t, p.Validate())
	require.Len(t, p.Observations, 2)

	obs1 := p.Observations["obs1"]
	require.Len(t, obs1.Events, 2)
	assert.Equal(t, 1.5, obs1.Events[0].Time)
	assert.Equal(t, 4.0, obs1.Events[1].Time)

	// The state row yields START and STOP events for obs2.
	obs2 := p.Observations["obs2"]
	require.Len(t, obs2.Events, 2)
	assert.Equal(t, 2.0, obs2.Events[0].Time)
	assert.Equal(t, 10.0, obs2.Events[1].Time)
}

func TestRecoverMissingBehaviorColumn(t *testing.T) {
	input := writeExport(t, "export.csv", "Observation id,Subject,Time,Behavior type\nobs1,A,1.0,POINT\n")

	_, _, err := execute(t, NewRecoverCommand(), input)
	require.Error(t, err)
	assert.ErrorIs(t, err, export.ErrFormat)

	_, statErr := os.Stat(writer.OutputPath(input))
	assert.True(t, os.IsNotExist(statErr), "no output file on format error")
}

func TestRecoverSkipsMalformedRows(t *testing.T) {
	csv := `Observation id,Subject,Behavior,Time,Behavior type
obs1,A,walk,1.0,POINT
obs1,,walk,2.0,POINT
obs1,B,rest,3.0,POINT
`
	input := writeExport(t, "export.csv", csv)

	stdout, _, err := execute(t, NewRecoverCommand(), input)
	require.NoError(t, err)

	assert.Contains(t, stdout, "Skipped 1 malformed row(s)")

	p := loadProject(t, writer.OutputPath(input))
	assert.Len(t, p.Observations["obs1"].Events, 2)
}

func TestRecoverRefusesOverwrite(t *testing.T) {
	input := writeExport(t, "export.csv", standardExport)
	output := writer.OutputPath(input)
	require.NoError(t, os.WriteFile(output, []byte("precious"), 0644))

	_, _, err := execute(t, NewRecoverCommand(), input)
	require.Error(t, err)
	assert.ErrorIs(t, err, writer.ErrExists)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "precious", string(data))
}

func TestRecoverForceOverwrites(t *testing.T) {
	input := writeExport(t, "export.csv", standardExport)
	output := writer.OutputPath(input)
	require.NoError(t, os.WriteFile(output, []byte("precious"), 0644))

	_, stderr, err := execute(t, NewRecoverCommand(), input, "--force")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Overwriting")

	p := loadProject(t, output)
	assert.NoError(t, p.Validate())
}

func TestRecoverOutputFlag(t *testing.T) {
	input := writeExport(t, "export.csv", standardExport)
	output := filepath.Join(filepath.Dir(input), "restored.boris")

	_, _, err := execute(t, NewRecoverCommand(), input, "--output", output)
	require.NoError(t, err)

	_, statErr := os.Stat(output)
	assert.NoError(t, statErr)
}

func TestRecoverIdempotent(t *testing.T) {
	input := writeExport(t, "export.csv", standardExport)
	output := writer.OutputPath(input)

	read := func() map[string]any {
		_, _, err := execute(t, NewRecoverCommand(), input, "--force")
		require.NoError(t, err)

		data, err := os.ReadFile(output)
		require.NoError(t, err)

		var doc map[string]any
		require.NoError(t, json.Unmarshal(data, &doc))
		// The creation timestamp is the only value allowed to differ.
		delete(doc, "project_date")
		return doc
	}

	assert.Equal(t, read(), read())
}

func TestRecoverMissingInput(t *testing.T) {
	_, _, err := execute(t, NewRecoverCommand(), filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRecoverWarnsOnNonCSVExtension(t *testing.T) {
	input := writeExport(t, "export.txt", standardExport)

	_, stderr, err := execute(t, NewRecoverCommand(), input)
	require.NoError(t, err)
	assert.Contains(t, stderr, "does not have a .csv extension")
}

func TestNewRecoverCommandFlags(t *testing.T) {
	cmd := NewRecoverCommand()

	assert.Equal(t, "recover <export.csv>", cmd.Use)
	assert.NotNil(t, cmd.RunE)

	for _, flag := range []string{"force", "output", "fps", "project-name", "log-level"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %s should exist", flag)
	}
}
