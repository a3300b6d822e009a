// package formatter exports a task's publish history to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/desertthunder/ytpub/internal/models"
)

// ExportToCSV converts the publishes of a TaskExport to CSV format with one row per publish request
func ExportToCSV(export *models.TaskExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Request", "Channel", "Title", "State", "Stage", "VideoID", "WatchURL", "Thumbnail", "Error", "Updated"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, p := range export.Publishes {
		record := []string{
			p.RequestID,
			p.ChannelID,
			p.Title,
			string(p.State),
			string(p.Stage),
			p.VideoID,
			p.WatchURL,
			string(p.Thumbnail),
			p.Error,
			p.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a TaskExport to a Markdown report
func ExportToMarkdown(export *models.TaskExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", export.Title)
	fmt.Fprintf(&buf, "**Status**: %s\n", export.Status)
	fmt.Fprintf(&buf, "**Revisions**: %d\n", len(export.Revisions))
	fmt.Fprintf(&buf, "**Publishes**: %d\n\n", len(export.Publishes))

	if len(export.Revisions) > 0 {
		buf.WriteString("## Revisions\n\n")
		for _, rev := range export.Revisions {
			fmt.Fprintf(&buf, "%d. `%s` (%s)\n", rev.Sequence, rev.AssetName, rev.CreatedAt.UTC().Format(time.DateOnly))
		}
		buf.WriteString("\n")
	}

	if len(export.Publishes) > 0 {
		buf.WriteString("## Publishes\n\n")
		buf.WriteString("| Title | Channel | State | Video |\n")
		buf.WriteString("| --- | --- | --- | --- |\n")
		for _, p := range export.Publishes {
			video := p.Error
			if p.Succeeded() {
				video = fmt.Sprintf("[%s](%s)", p.VideoID, p.WatchURL)
			} else if p.State == models.StateFailed {
				video = fmt.Sprintf("failed at %s: %s", p.Stage, p.Error)
			}
			fmt.Fprintf(&buf, "| %s | %s | %s | %s |\n", p.Title, p.ChannelID, p.State, video)
		}
		buf.WriteString("\n")
	}

	if len(export.Comments) > 0 {
		buf.WriteString("## Comments\n\n")
		for _, c := range export.Comments {
			fmt.Fprintf(&buf, "- **%s** (%s): %s\n", c.Author, c.CreatedAt.UTC().Format(time.DateTime), c.Body)
		}
	}

	return buf.Bytes(), nil
}

// ExportToText converts a TaskExport to plain text format
func ExportToText(export *models.TaskExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Task: %s\n", export.Title)
	fmt.Fprintf(&buf, "Status: %s\n", export.Status)
	fmt.Fprintf(&buf, "Publishes: %d\n\n", len(export.Publishes))

	for i, p := range export.Publishes {
		switch {
		case p.Succeeded():
			fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, p.Title, p.WatchURL)
		case p.State == models.StateFailed:
			fmt.Fprintf(&buf, "%d. %s - failed at %s\n", i+1, p.Title, p.Stage)
		default:
			fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, p.Title, p.State)
		}
	}

	return buf.Bytes(), nil
}

// ToTaskJSON generates a JSON representation of the task itself (without history)
func ToTaskJSON(task *models.Task) ([]byte, error) {
	data, err := json.MarshalIndent(task, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task: %w", err)
	}
	return data, nil
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	PublishesFile string
	TaskFile      string
}

// WriteCSVExport exports a task's publishes to CSV format with an accompanying task JSON file.
//
// Defaults to the task ID as the base filename & creates {base}_publishes.csv and {base}_task.json
func WriteCSVExport(export *models.TaskExport, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = export.ID
	}

	csvData, err := ExportToCSV(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	publishesFile := baseFilepath + "_publishes.csv"
	if err := os.WriteFile(publishesFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	taskJSON, err := ToTaskJSON(export.Task)
	if err != nil {
		return nil, err
	}

	taskFile := baseFilepath + "_task.json"
	if err := os.WriteFile(taskFile, taskJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write task file: %w", err)
	}

	return &CSVExportResult{
		PublishesFile: publishesFile,
		TaskFile:      taskFile,
	}, nil
}

// WriteMarkdownExport writes the Markdown report to {dir}/README.md.
//
// Directory name defaults to the task ID.
func WriteMarkdownExport(export *models.TaskExport, outputDir string) (string, error) {
	if outputDir == "" {
		outputDir = export.ID
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	mdData, err := ExportToMarkdown(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return "", fmt.Errorf("failed to write Markdown file: %w", err)
	}

	return mdFile, nil
}

// WriteTextExport exports a task's publishes to plain text format.
//
// Defaults to {task.ID}_publishes.txt as the filename.
func WriteTextExport(export *models.TaskExport, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_publishes.txt", export.ID)
	}

	textData, err := ExportToText(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}
