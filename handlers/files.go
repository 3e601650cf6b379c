// ABOUTME: File handlers for deal attachments shared with clients
// ABOUTME: Upload writes the blob then the record; downloads apply the category rule
package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/harperreed/crmlite/db"
	"github.com/harperreed/crmlite/models"
	"github.com/harperreed/crmlite/policy"
	"github.com/harperreed/crmlite/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type FileHandlers struct {
	store  *db.Store
	blobs  *storage.Local
	logger *log.Logger
}

func NewFileHandlers(store *db.Store, blobs *storage.Local, logger *log.Logger) *FileHandlers {
	return &FileHandlers{store: store, blobs: blobs, logger: logger}
}

type FileOutput struct {
	ID          string `json:"id"`
	DealID      string `json:"deal_id"`
	Filename    string `json:"filename"`
	Category    string `json:"category"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
	UploadedAt  string `json:"uploaded_at"`
}

func fileToOutput(f *models.File) FileOutput {
	return FileOutput{
		ID:          f.ID.String(),
		DealID:      f.DealID.String(),
		Filename:    f.Filename,
		Category:    f.Category,
		Size:        f.Size,
		ContentType: storage.ContentTypeFor(f.Filename),
		UploadedAt:  formatTime(f.UploadedAt),
	}
}

// Upload stores content for the deal and records it. The blob write and the
// insert are not atomic: if the insert fails the blob stays behind as an
// orphan, which is logged and left alone.
func (h *FileHandlers) Upload(ctx context.Context, dealIDValue, filename, category string, content io.Reader) (FileOutput, error) {
	id, err := policy.Require(ctx)
	if err != nil {
		return FileOutput{}, err
	}

	if strings.TrimSpace(dealIDValue) == "" || strings.TrimSpace(filename) == "" || content == nil {
		return FileOutput{}, policy.Invalid("File and deal_id are required")
	}
	dealID, err := parseID(dealIDValue, "deal_id", "Deal")
	if err != nil {
		return FileOutput{}, err
	}
	if category == "" {
		category = models.FileInternal
	}
	if err := requireEnum(category, "category", models.FileCategories); err != nil {
		return FileOutput{}, err
	}

	if err := policy.RequireWriter(id); err != nil {
		return FileOutput{}, err
	}

	deal, err := loadDeal(ctx, h.store, dealID)
	if err != nil {
		return FileOutput{}, err
	}
	if err := policy.CanWriteDeal(id, deal); err != nil {
		return FileOutput{}, err
	}

	rel, size, err := h.blobs.Save(deal.ID, filename, content)
	if err != nil {
		return FileOutput{}, fmt.Errorf("failed to store file: %w", err)
	}
	if size == 0 {
		_ = h.blobs.Remove(rel)
		return FileOutput{}, policy.Invalid("File is empty")
	}

	file := &models.File{
		DealID:   deal.ID,
		Filename: strings.TrimSpace(filename),
		Filepath: rel,
		Category: category,
		Size:     size,
	}
	if err := h.store.CreateFile(ctx, file); err != nil {
		h.logger.Warn("orphaned upload", "deal_id", deal.ID, "path", rel, "err", err)
		return FileOutput{}, fmt.Errorf("failed to record file: %w", err)
	}

	return fileToOutput(file), nil
}

type UploadFileInput struct {
	DealID        string `json:"deal_id" jsonschema:"Deal ID (required)"`
	Filename      string `json:"filename" jsonschema:"Original file name; its extension picks the download content type (required)"`
	Category      string `json:"category,omitempty" jsonschema:"INTERNAL (reps only) or EXTERNAL (shared with the client); default INTERNAL"`
	ContentBase64 string `json:"content_base64" jsonschema:"File content, base64 encoded (required)"`
}

func (h *FileHandlers) UploadFile(ctx context.Context, _ *mcp.CallToolRequest, input UploadFileInput) (*mcp.CallToolResult, FileOutput, error) {
	if _, err := policy.Require(ctx); err != nil {
		return nil, FileOutput{}, err
	}

	content, err := base64.StdEncoding.DecodeString(input.ContentBase64)
	if err != nil {
		return nil, FileOutput{}, policy.Invalid("content_base64 is not valid base64")
	}
	if len(content) == 0 {
		return nil, FileOutput{}, policy.Invalid("File and deal_id are required")
	}

	out, err := h.Upload(ctx, input.DealID, input.Filename, input.Category, bytes.NewReader(content))
	if err != nil {
		return nil, FileOutput{}, err
	}
	return nil, out, nil
}

type ListFilesInput struct {
	DealID string `json:"deal_id" jsonschema:"Deal ID (required)"`
}

type ListFilesOutput struct {
	Files []FileOutput `json:"files"`
	Count int          `json:"count"`
}

// ListFiles returns the deal's files the caller may see; clients only get EXTERNAL ones.
func (h *FileHandlers) ListFiles(ctx context.Context, _ *mcp.CallToolRequest, input ListFilesInput) (*mcp.CallToolResult, ListFilesOutput, error) {
	id, err := policy.Require(ctx)
	if err != nil {
		return nil, ListFilesOutput{}, err
	}

	dealID, err := parseID(input.DealID, "deal_id", "Deal")
	if err != nil {
		return nil, ListFilesOutput{}, err
	}

	deal, err := loadDeal(ctx, h.store, dealID)
	if err != nil {
		return nil, ListFilesOutput{}, err
	}
	if err := policy.CanReadDeal(id, deal); err != nil {
		return nil, ListFilesOutput{}, err
	}

	files, err := h.store.FindFiles(ctx, deal.ID, policy.FileCategories(id))
	if err != nil {
		return nil, ListFilesOutput{}, fmt.Errorf("failed to list files: %w", err)
	}

	out := ListFilesOutput{Files: make([]FileOutput, 0, len(files)), Count: len(files)}
	for _, f := range files {
		out.Files = append(out.Files, fileToOutput(f))
	}
	return nil, out, nil
}

// OpenFile authorizes a download and opens the blob. The caller closes it.
func (h *FileHandlers) OpenFile(ctx context.Context, fileIDValue string) (*models.File, *os.File, error) {
	id, err := policy.Require(ctx)
	if err != nil {
		return nil, nil, err
	}

	fileID, err := parseID(fileIDValue, "id", "File")
	if err != nil {
		return nil, nil, err
	}

	file, err := h.store.GetFile(ctx, fileID)
	if err != nil {
		return nil, nil, missing(err, "File", "get")
	}
	deal, err := loadDeal(ctx, h.store, file.DealID)
	if err != nil {
		return nil, nil, err
	}
	if err := policy.CanReadFile(id, deal, file); err != nil {
		return nil, nil, err
	}

	blob, err := h.blobs.Open(file.Filepath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file %s: %w", file.ID, err)
	}
	return file, blob, nil
}

type GetFileInput struct {
	ID string `json:"id" jsonschema:"File ID (required)"`
}

type FileContentOutput struct {
	File          FileOutput `json:"file"`
	ContentBase64 string     `json:"content_base64"`
}

func (h *FileHandlers) GetFile(ctx context.Context, _ *mcp.CallToolRequest, input GetFileInput) (*mcp.CallToolResult, FileContentOutput, error) {
	file, blob, err := h.OpenFile(ctx, input.ID)
	if err != nil {
		return nil, FileContentOutput{}, err
	}
	defer blob.Close()

	data, err := io.ReadAll(blob)
	if err != nil {
		return nil, FileContentOutput{}, fmt.Errorf("failed to read file: %w", err)
	}

	return nil, FileContentOutput{
		File:          fileToOutput(file),
		ContentBase64: base64.StdEncoding.EncodeToString(data),
	}, nil
}
