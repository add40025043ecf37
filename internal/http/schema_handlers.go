package httpserver

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"shardhub/internal/schema"
)

type SchemaHandler struct {
	introspector *schema.Introspector
	comparer     *schema.Comparer
	logger       requestLogger
}

func NewSchemaHandler(introspector *schema.Introspector, comparer *schema.Comparer, logger requestLogger) *SchemaHandler {
	return &SchemaHandler{
		introspector: introspector,
		comparer:     comparer,
		logger:       logger,
	}
}

type columnView struct {
	Name       string `json:"name"`
	DataType   string `json:"data_type"`
	IsNullable bool   `json:"is_nullable"`
	Default    string `json:"default,omitempty"`
}

type tableView struct {
	Name    string       `json:"name"`
	Columns []columnView `json:"columns,omitempty"`
}

func (h *SchemaHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	shardID := chi.URLParam(r, "shard")
	includeColumns := boolParam(r, "columns")

	snap, err := h.introspector.Snapshot(r.Context(), shardID, includeColumns)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	tables := make([]tableView, 0, len(snap.Tables))
	for _, t := range snap.Tables {
		view := tableView{Name: t.Name}
		for _, c := range t.Columns {
			view.Columns = append(view.Columns, toColumnView(c))
		}
		tables = append(tables, view)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"shard":       snap.ShardID,
		"snapshot_at": snap.SnapshotAt,
		"tables":      tables,
	})
}

func (h *SchemaHandler) Diff(w http.ResponseWriter, r *http.Request) {
	shardID := r.URL.Query().Get("shard")
	baselineID := r.URL.Query().Get("baseline")
	if shardID == "" || baselineID == "" {
		writeError(w, http.StatusBadRequest, "missing_params", "shard and baseline query parameters are required")
		return
	}
	includeColumns := boolParam(r, "columns")

	diff, err := h.comparer.CompareShards(r.Context(), shardID, baselineID, includeColumns)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"shard":       diff.ShardID,
		"baseline":    diff.BaselineID,
		"in_sync":     !diff.HasChanges(),
		"diff":        diffView(diff),
		"description": schema.Describe(diff),
	})
}

type tableDiffView struct {
	ColumnsOnlyInShard    []string         `json:"columns_only_in_shard,omitempty"`
	ColumnsOnlyInBaseline []string         `json:"columns_only_in_baseline,omitempty"`
	Changed               []columnDiffView `json:"changed,omitempty"`
}

type columnDiffView struct {
	Name     string     `json:"name"`
	Shard    columnView `json:"shard"`
	Baseline columnView `json:"baseline"`
}

func diffView(d schema.Diff) map[string]any {
	tables := make(map[string]tableDiffView, len(d.Tables))
	for name, td := range d.Tables {
		view := tableDiffView{
			ColumnsOnlyInShard:    td.ColumnsOnlyInShard,
			ColumnsOnlyInBaseline: td.ColumnsOnlyInBaseline,
		}
		for _, ch := range td.Changed {
			view.Changed = append(view.Changed, columnDiffView{
				Name:     ch.Name,
				Shard:    toColumnView(ch.Shard),
				Baseline: toColumnView(ch.Baseline),
			})
		}
		tables[name] = view
	}
	return map[string]any{
		"tables_only_in_shard":    d.TablesOnlyInShard,
		"tables_only_in_baseline": d.TablesOnlyInBaseline,
		"tables":                  tables,
	}
}

func toColumnView(c schema.ColumnSchema) columnView {
	cv := columnView{Name: c.Name, DataType: c.DataType, IsNullable: c.IsNullable}
	if c.DefaultValue.Valid {
		cv.Default = c.DefaultValue.String
	}
	return cv
}

func boolParam(r *http.Request, name string) bool {
	return strings.EqualFold(r.URL.Query().Get(name), "true")
}
