package ingest

import "github.com/aidanlsb/skycat/internal/model"

// Action is what an ingest run did, or would do, to one record.
type Action string

const (
	Created   Action = "created"
	Updated   Action = "updated"
	Unchanged Action = "unchanged"
	Skipped   Action = "skipped"
)

// RecordResult describes one record that was created or updated.
type RecordResult struct {
	Kind    string         `json:"kind"`
	Key     string         `json:"key"`
	Name    string         `json:"name,omitempty"`
	Action  Action         `json:"action"`
	Changes []model.Change `json:"changes,omitempty"`
}

// Skip is a candidate record left out of the run.
type Skip struct {
	Kind   string `json:"kind"`
	Key    string `json:"key"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// Counts tallies the outcomes for one record kind.
type Counts struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Skipped   int `json:"skipped"`
}

func (c *Counts) add(a Action) {
	switch a {
	case Created:
		c.Created++
	case Updated:
		c.Updated++
	case Unchanged:
		c.Unchanged++
	case Skipped:
		c.Skipped++
	}
}

// Report summarizes an ingest run. Nothing the run dropped is left out.
type Report struct {
	Source    string         `json:"source"`
	DryRun    bool           `json:"dry_run,omitempty"`
	Imagesets Counts         `json:"imagesets"`
	Places    Counts         `json:"places"`
	Records   []RecordResult `json:"records,omitempty"`
	Skips     []Skip         `json:"skips,omitempty"`

	// LinkFolders are URLs of linked catalogs found in the document. Their
	// contents are not fetched; each can be ingested on its own.
	LinkFolders []string `json:"link_folders,omitempty"`

	// Template is the catalog created or modified, if any.
	Template       string `json:"template,omitempty"`
	TemplateAction Action `json:"template_action,omitempty"`
}

// Changed reports whether the run wrote, or would write, anything.
func (r *Report) Changed() bool {
	return len(r.Records) > 0 || (r.Template != "" && r.TemplateAction != Unchanged)
}
