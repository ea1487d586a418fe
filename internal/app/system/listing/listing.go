// Package listing provides read-only child enumeration and path resolution
// over the folder hierarchy.
package listing

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/jwagner/imagevault/internal/app/store/folder"
	"github.com/jwagner/imagevault/internal/app/store/image"
	userstore "github.com/jwagner/imagevault/internal/app/store/users"
	"github.com/jwagner/imagevault/internal/app/system/fault"
	"github.com/jwagner/imagevault/internal/domain/models"
)

// DefaultPageSize is the number of children returned when the caller does
// not ask for a specific limit.
const DefaultPageSize = 5

// FolderSummary is the listing projection of a folder.
type FolderSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	OwnerID   string `json:"owner_id"`
	OwnerName string `json:"owner_name"`
}

// ImageSummary is the listing projection of an image.
type ImageSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Page is one window of a folder's children: subfolders first, then images,
// both in insertion order.
type Page struct {
	Subfolders []FolderSummary `json:"subfolders"`
	Images     []ImageSummary  `json:"images"`
	Offset     int             `json:"offset"`
	Total      int             `json:"total"` // subfolders + images in the folder
	HasMore    bool            `json:"has_more"`
}

// Service reads the hierarchy for display.
type Service struct {
	folders *folder.Store
	images  *image.Store
	users   *userstore.Store
	logger  *zap.Logger
}

// New creates a listing service over the given database.
func New(db *mongo.Database, logger *zap.Logger) *Service {
	return &Service{
		folders: folder.New(db),
		images:  image.New(db),
		users:   userstore.New(db),
		logger:  logger,
	}
}

// ListChildren returns the window [offset, offset+limit) over the folder's
// subfolder ids followed by its image ids, resolved to summaries. A limit
// of zero or less means DefaultPageSize. Offsets are positions in the live
// lists, so deletions shift later windows; callers re-fetch from zero after
// structural changes or tolerate the skew. Ids whose records have vanished
// mid-read are skipped with a warning rather than failing the page.
func (s *Service) ListChildren(ctx context.Context, folderID string, offset, limit int) (*Page, error) {
	f, err := s.folders.GetByID(ctx, folderID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fault.New(fault.NotFound, "folder %s not found", folderID)
		}
		return nil, fault.Wrap(fault.IOFailure, err, "loading folder %s", folderID)
	}
	if offset < 0 {
		return nil, fault.New(fault.InvalidArgument, "offset must not be negative")
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}

	total := len(f.SubfolderIDs) + len(f.ImageIDs)
	page := &Page{
		Subfolders: []FolderSummary{},
		Images:     []ImageSummary{},
		Offset:     offset,
		Total:      total,
		HasMore:    offset+limit < total,
	}
	if offset >= total {
		return page, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}

	var folderIDs, imageIDs []string
	for i := offset; i < end; i++ {
		if i < len(f.SubfolderIDs) {
			folderIDs = append(folderIDs, f.SubfolderIDs[i])
		} else {
			imageIDs = append(imageIDs, f.ImageIDs[i-len(f.SubfolderIDs)])
		}
	}

	if len(folderIDs) > 0 {
		summaries, err := s.folderSummaries(ctx, folderID, folderIDs)
		if err != nil {
			return nil, err
		}
		page.Subfolders = summaries
	}
	if len(imageIDs) > 0 {
		summaries, err := s.imageSummaries(ctx, folderID, imageIDs)
		if err != nil {
			return nil, err
		}
		page.Images = summaries
	}
	return page, nil
}

// ResolvePath resolves a root-to-target id sequence into folder records,
// verifying each id is listed as a child of the one before it. Overlay
// entries count, so a share recipient can resolve through their shared
// root. Fails NotFound at the first broken segment.
func (s *Service) ResolvePath(ctx context.Context, ids []string) ([]models.Folder, error) {
	if len(ids) == 0 {
		return nil, fault.New(fault.InvalidArgument, "empty path")
	}

	path := make([]models.Folder, 0, len(ids))
	for i, id := range ids {
		f, err := s.folders.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, fault.New(fault.NotFound, "path segment %s not found", id)
			}
			return nil, fault.Wrap(fault.IOFailure, err, "loading path segment %s", id)
		}
		if i > 0 && !path[i-1].HasSubfolder(id) {
			return nil, fault.New(fault.NotFound, "folder %s is not a child of %s", id, path[i-1].ID)
		}
		path = append(path, *f)
	}
	return path, nil
}

// folderSummaries resolves ids to summaries, restoring the id order the
// batch lookup does not guarantee and attaching owner names.
func (s *Service) folderSummaries(ctx context.Context, parentID string, ids []string) ([]FolderSummary, error) {
	folders, err := s.folders.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fault.Wrap(fault.IOFailure, err, "loading children of %s", parentID)
	}
	byID := make(map[string]*models.Folder, len(folders))
	ownerIDs := make([]string, 0, len(folders))
	for i := range folders {
		byID[folders[i].ID] = &folders[i]
		ownerIDs = append(ownerIDs, folders[i].OwnerID)
	}
	owners, err := s.users.GetByIDs(ctx, ownerIDs)
	if err != nil {
		return nil, fault.Wrap(fault.IOFailure, err, "loading owners of children of %s", parentID)
	}
	ownerNames := make(map[string]string, len(owners))
	for _, u := range owners {
		ownerNames[u.ID] = u.Username
	}

	summaries := make([]FolderSummary, 0, len(ids))
	for _, id := range ids {
		f, ok := byID[id]
		if !ok {
			s.logger.Warn("listed child folder no longer exists",
				zap.String("parent_id", parentID),
				zap.String("folder_id", id))
			continue
		}
		summaries = append(summaries, FolderSummary{
			ID:        f.ID,
			Name:      f.Name,
			Size:      f.Size,
			OwnerID:   f.OwnerID,
			OwnerName: ownerNames[f.OwnerID],
		})
	}
	return summaries, nil
}

func (s *Service) imageSummaries(ctx context.Context, parentID string, ids []string) ([]ImageSummary, error) {
	images, err := s.images.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fault.Wrap(fault.IOFailure, err, "loading images of %s", parentID)
	}
	byID := make(map[string]*models.Image, len(images))
	for i := range images {
		byID[images[i].ID] = &images[i]
	}

	summaries := make([]ImageSummary, 0, len(ids))
	for _, id := range ids {
		img, ok := byID[id]
		if !ok {
			s.logger.Warn("listed image no longer exists",
				zap.String("folder_id", parentID),
				zap.String("image_id", id))
			continue
		}
		summaries = append(summaries, ImageSummary{ID: img.ID, Name: img.Name, Size: img.Size})
	}
	return summaries, nil
}
