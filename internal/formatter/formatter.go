// package formatter exports queue contents to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/music-downloader-hub/tunepull/internal/formats"
	"github.com/music-downloader-hub/tunepull/internal/models"
	"github.com/music-downloader-hub/tunepull/internal/shared"
)

// QueueExport is a snapshot of the queue taken for export: all items in
// insertion order plus the groups they reference.
type QueueExport struct {
	Items  []*models.QueueItem  `json:"items"`
	Groups []*models.QueueGroup `json:"groups"`
}

func (e *QueueExport) groupName(groupID string) string {
	if groupID == "" {
		return ""
	}
	for _, g := range e.Groups {
		if g.ID == groupID {
			return g.Name
		}
	}
	return groupID
}

// ExportToCSV converts a QueueExport to CSV format with columns: Track, Artist, Album, Duration, Status, Format, Group
func ExportToCSV(export *QueueExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Track", "Artist", "Album", "Duration", "Status", "Format", "Group"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, item := range export.Items {
		record := []string{
			item.Song.TrackName,
			item.Song.ArtistName,
			item.Song.CollectionName,
			shared.FormatDuration(item.Song.TrackTimeMillis),
			string(item.Status),
			formats.Label(item.ChosenFormat),
			export.groupName(item.GroupID),
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

// ExportToMarkdown converts a QueueExport to Markdown format with optional cover image
func ExportToMarkdown(export *QueueExport, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Download Queue\n\n")

	if imageFilename != "" {
		buf.WriteString(fmt.Sprintf("![Cover](%s)\n\n", imageFilename))
	}

	buf.WriteString(fmt.Sprintf("**Items**: %d\n", len(export.Items)))
	buf.WriteString(fmt.Sprintf("**Groups**: %d\n\n", len(export.Groups)))

	buf.WriteString("## Tracks\n\n")
	for i, item := range export.Items {
		albumPart := ""
		if item.Song.CollectionName != "" {
			albumPart = fmt.Sprintf(" (%s)", item.Song.CollectionName)
		}
		groupPart := ""
		if name := export.groupName(item.GroupID); name != "" {
			groupPart = fmt.Sprintf(" | group: %s", name)
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s%s [%s, %s]%s\n",
			i+1, item.Song.ArtistName, item.Song.TrackName, albumPart,
			item.Status, formats.Label(item.ChosenFormat), groupPart))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a QueueExport to plain text format
func ExportToText(export *QueueExport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Queue: %d items\n\n", len(export.Items)))

	for i, item := range export.Items {
		buf.WriteString(fmt.Sprintf("%d. %s - %s [%s]\n",
			i+1, item.Song.ArtistName, item.Song.TrackName, item.Status))
	}

	return buf.Bytes(), nil
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// ToGroupsJSON generates a JSON representation of the queue's groups
func ToGroupsJSON(export *QueueExport) ([]byte, error) {
	return shared.MarshalJSON(export.Groups, true)
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	ItemsFile  string
	GroupsFile string
}

// WriteCSVExport exports the queue to CSV format with accompanying groups JSON file.
//
// Creates {base}_queue.csv and {base}_groups.json
func WriteCSVExport(export *QueueExport, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = "queue"
	}

	csvData, err := ExportToCSV(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	itemsFile := baseFilepath + "_queue.csv"
	if err := os.WriteFile(itemsFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	groupsJSON, err := ToGroupsJSON(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate groups JSON: %w", err)
	}

	groupsFile := baseFilepath + "_groups.json"
	if err := os.WriteFile(groupsFile, groupsJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write groups file: %w", err)
	}

	return &CSVExportResult{
		ItemsFile:  itemsFile,
		GroupsFile: groupsFile,
	}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// WriteMarkdownExport exports the queue to Markdown format in a dedicated directory.
//
// The imageURL parameter is optional - if provided, attempts to download the cover image.
// Creates a directory structure: {dir}/README.md and optionally {dir}/cover.jpg
func WriteMarkdownExport(export *QueueExport, outputDir string, imageURL string) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = "queue"
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	var coverImageFilename string
	if imageURL != "" {
		imageData, err := DownloadImage(imageURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to download cover image: %v\n", err)
		} else {
			coverImageFilename = "cover.jpg"
			coverImagePath := fmt.Sprintf("%s/%s", outputDir, coverImageFilename)
			if err := os.WriteFile(coverImagePath, imageData, 0644); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to save cover image: %v\n", err)
				coverImageFilename = ""
			} else {
				result.CoverImage = coverImagePath
				result.Files = append(result.Files, coverImagePath)
			}
		}
	}

	mdData, err := ExportToMarkdown(export, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := fmt.Sprintf("%s/README.md", outputDir)
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)

	return result, nil
}

// WriteTextExport exports the queue to plain text format.
//
// Defaults to queue_tracks.txt as the filename.
func WriteTextExport(export *QueueExport, filepath string) (string, error) {
	if filepath == "" {
		filepath = "queue_tracks.txt"
	}

	textData, err := ExportToText(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(filepath, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return filepath, nil
}
