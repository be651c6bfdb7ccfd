package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	cferrors "github.com/nyayatech/casefind/internal/errors"
	"github.com/nyayatech/casefind/internal/store"
	"github.com/nyayatech/casefind/internal/vector"
)

// embedBatchSize is how many cases are embedded per request while loading.
const embedBatchSize = 64

// newLoadCmd creates the load command.
func newLoadCmd() *cobra.Command {
	var workspace string

	cmd := &cobra.Command{
		Use:   "load <cases.jsonl>",
		Short: "Load case records from a JSONL file into the index",
		Long: `Load reads one case record per line (JSON), writes each to the
metadata store, and embeds it into the vector index. Records carry their
own workspace_id; the --workspace flag fills it in when missing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			comps, err := openComponents(cfg)
			if err != nil {
				return err
			}
			defer comps.Close()

			file, err := os.Open(args[0])
			if err != nil {
				return cferrors.New(cferrors.ErrCodeStoreIO, fmt.Sprintf("open %s", args[0]), err)
			}
			defer file.Close()

			var (
				batch []*store.CaseRecord
				total int
			)

			scanner := bufio.NewScanner(file)
			scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
			for scanner.Scan() {
				line := scanner.Bytes()
				if len(line) == 0 {
					continue
				}

				var rec store.CaseRecord
				if err := json.Unmarshal(line, &rec); err != nil {
					return cferrors.ValidationError(fmt.Sprintf("parse record at line %d", total+1), err)
				}
				if rec.DocID == "" {
					return cferrors.ValidationError(fmt.Sprintf("record at line %d has no doc_id", total+1), nil)
				}
				if rec.WorkspaceID == "" {
					rec.WorkspaceID = workspace
				}

				batch = append(batch, &rec)
				total++

				if len(batch) >= embedBatchSize {
					if err := flushBatch(cmd, comps, batch); err != nil {
						return err
					}
					batch = batch[:0]
				}
			}
			if err := scanner.Err(); err != nil {
				return cferrors.New(cferrors.ErrCodeStoreIO, "read records", err)
			}
			if len(batch) > 0 {
				if err := flushBatch(cmd, comps, batch); err != nil {
					return err
				}
			}

			if err := comps.idx.Save(vectorIndexPath(cfg)); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d cases.\n", total)
			return nil
		},
	}

	cmd.Flags().StringVarP(&workspace, "workspace", "w", "default", "Workspace for records without one")

	return cmd
}

// flushBatch persists a batch to the store and the vector index.
// Records are grouped per workspace because the index namespaces by it.
func flushBatch(cmd *cobra.Command, comps *components, batch []*store.CaseRecord) error {
	if err := comps.meta.Put(cmd.Context(), batch...); err != nil {
		return err
	}

	byWorkspace := make(map[string][]*vector.Document)
	for _, rec := range batch {
		md := make(map[string]string, 4)
		if rec.Court != "" {
			md["court"] = rec.Court
		}
		if rec.Year != 0 {
			md["year"] = strconv.Itoa(rec.Year)
		}
		if rec.Citation != "" {
			md["citation"] = rec.Citation
		}
		if rec.CaseType != "" {
			md["case_type"] = rec.CaseType
		}
		byWorkspace[rec.WorkspaceID] = append(byWorkspace[rec.WorkspaceID], &vector.Document{
			ID:       rec.DocID,
			Title:    rec.Title,
			Text:     rec.Text,
			Metadata: md,
		})
	}

	for ws, docs := range byWorkspace {
		if err := comps.idx.Add(cmd.Context(), ws, docs); err != nil {
			return err
		}
	}
	return nil
}
