package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PipelineSync/internal/pipeline"
	"PipelineSync/internal/pipeline/diff"
	"PipelineSync/internal/pipeline/model"
)

func sampleChanges() []model.ChangeRecord {
	return []model.ChangeRecord{
		{DealName: "Acme: New", ChangeType: model.ChangeNew, Proposed: &model.CanonicalDeal{Stage: model.StageDiscovery}},
		{DealName: "Acme: Mod", ChangeType: model.ChangeModified, FieldDiffs: []model.FieldDiff{
			{Message: "Stage: Discovery → Proposal"}, {Message: "Owner: None → J. Lee"},
		}},
		{DealName: "Acme: Old", ChangeType: model.ChangeRemoved},
		{DealName: "Acme: Same", ChangeType: model.ChangeUnchanged},
	}
}

func TestSelectChanges(t *testing.T) {
	got, err := selectChanges(sampleChanges(), []string{"new", " Modified "})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Acme: New", got[0].DealName)
	assert.Equal(t, "Acme: Mod", got[1].DealName)

	got, err = selectChanges(sampleChanges(), []string{"unchanged"})
	assert.Error(t, err)
	assert.Nil(t, got)
}

func TestConfirm(t *testing.T) {
	var out bytes.Buffer
	assert.True(t, confirm(strings.NewReader("y\n"), &out, "Apply 3 changes?"))
	assert.Equal(t, "Apply 3 changes? [y/N]: ", out.String())
	assert.True(t, confirm(strings.NewReader("YES"), &out, "?"))
	assert.False(t, confirm(strings.NewReader("\n"), &out, "?"))
	assert.False(t, confirm(strings.NewReader(""), &out, "?"))
}

func TestPrintPreview(t *testing.T) {
	changes := sampleChanges()
	res := &pipeline.PreviewResult{Summary: diff.Summarize(changes), Changes: changes, DuplicateKeys: []string{"acme: dup"}}

	var out bytes.Buffer
	printPreview(&out, res, false)
	text := out.String()
	assert.Contains(t, text, "new: 1  modified: 1  removed: 1  unchanged: 1  total: 4")
	assert.Contains(t, text, "duplicate deal names: acme: dup")
	assert.Contains(t, text, "Stage: Discovery → Proposal; Owner: None → J. Lee")
	assert.Contains(t, text, "will be marked Closed_Lost")
	assert.NotContains(t, text, "Acme: Same")

	out.Reset()
	printPreview(&out, res, true)
	assert.Contains(t, out.String(), "Acme: Same")
}
