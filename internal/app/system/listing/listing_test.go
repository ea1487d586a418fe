package listing

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/jwagner/imagevault/internal/app/store/folder"
	"github.com/jwagner/imagevault/internal/app/store/image"
	userstore "github.com/jwagner/imagevault/internal/app/store/users"
	"github.com/jwagner/imagevault/internal/app/system/fault"
	"github.com/jwagner/imagevault/internal/domain/models"
	"github.com/jwagner/imagevault/internal/testutil"
)

func seedUser(t *testing.T, ctx context.Context, db *mongo.Database, username string) *models.User {
	t.Helper()
	folders := folder.New(db)
	users := userstore.New(db)

	u := &models.User{
		ID:                 uuid.New().String(),
		Username:           username,
		PasswordHash:       "x",
		RootFolderID:       uuid.New().String(),
		SharedRootFolderID: uuid.New().String(),
	}
	for _, f := range []*models.Folder{
		{ID: u.RootFolderID, Name: "Home", OwnerID: u.ID},
		{ID: u.SharedRootFolderID, Name: "Shared With Me", OwnerID: u.ID},
	} {
		if err := folders.Insert(ctx, f); err != nil {
			t.Fatalf("seeding root folder: %v", err)
		}
	}
	if err := users.Insert(ctx, u); err != nil {
		t.Fatalf("seeding user: %v", err)
	}
	return u
}

func seedChildFolder(t *testing.T, ctx context.Context, db *mongo.Database, owner *models.User, parentID, name string) *models.Folder {
	t.Helper()
	folders := folder.New(db)
	f := &models.Folder{ID: uuid.New().String(), Name: name, OwnerID: owner.ID, ParentID: &parentID}
	if err := folders.Insert(ctx, f); err != nil {
		t.Fatalf("seeding folder: %v", err)
	}
	if err := folders.PushSubfolder(ctx, parentID, f.ID); err != nil {
		t.Fatalf("attaching folder: %v", err)
	}
	return f
}

func seedChildImage(t *testing.T, ctx context.Context, db *mongo.Database, folderID, name string, size int64) *models.Image {
	t.Helper()
	folders := folder.New(db)
	images := image.New(db)
	img := &models.Image{ID: uuid.New().String() + ".png", Name: name, Size: size, ContentType: "image/png"}
	if err := images.Insert(ctx, img); err != nil {
		t.Fatalf("seeding image: %v", err)
	}
	if err := folders.PushImage(ctx, folderID, img.ID); err != nil {
		t.Fatalf("attaching image: %v", err)
	}
	return img
}

func TestService_ListChildrenPagination(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := seedUser(t, ctx, db, "alice")
	// 4 subfolders followed by 3 images: 7 children in total.
	for i := 0; i < 4; i++ {
		seedChildFolder(t, ctx, db, alice, alice.RootFolderID, fmt.Sprintf("f%d", i))
	}
	for i := 0; i < 3; i++ {
		seedChildImage(t, ctx, db, alice.RootFolderID, fmt.Sprintf("i%d.png", i), 10)
	}

	// Default page size straddles the folder/image boundary.
	page, err := svc.ListChildren(ctx, alice.RootFolderID, 0, 0)
	if err != nil {
		t.Fatalf("ListChildren() error = %v", err)
	}
	if len(page.Subfolders) != 4 || len(page.Images) != 1 {
		t.Errorf("page 1 = %d folders + %d images, want 4+1", len(page.Subfolders), len(page.Images))
	}
	if page.Total != 7 || !page.HasMore {
		t.Errorf("Total = %d HasMore = %t, want 7 true", page.Total, page.HasMore)
	}
	if page.Subfolders[0].Name != "f0" || page.Subfolders[3].Name != "f3" {
		t.Errorf("insertion order violated: %+v", page.Subfolders)
	}
	if page.Subfolders[0].OwnerName != "alice" {
		t.Errorf("OwnerName = %q, want alice", page.Subfolders[0].OwnerName)
	}
	if page.Images[0].Name != "i0.png" {
		t.Errorf("Images[0] = %+v, want i0.png", page.Images[0])
	}

	page, err = svc.ListChildren(ctx, alice.RootFolderID, 5, 0)
	if err != nil {
		t.Fatalf("ListChildren() error = %v", err)
	}
	if len(page.Subfolders) != 0 || len(page.Images) != 2 || page.HasMore {
		t.Errorf("page 2 = %d folders + %d images HasMore=%t, want 0+2 false", len(page.Subfolders), len(page.Images), page.HasMore)
	}

	// Past-the-end offset yields an empty page, not an error.
	page, err = svc.ListChildren(ctx, alice.RootFolderID, 100, 0)
	if err != nil || len(page.Subfolders)+len(page.Images) != 0 {
		t.Errorf("past-end page = %+v, err = %v", page, err)
	}

	if _, err := svc.ListChildren(ctx, "missing", 0, 0); fault.KindOf(err) != fault.NotFound {
		t.Errorf("missing folder error = %v, want NotFound", err)
	}
	if _, err := svc.ListChildren(ctx, alice.RootFolderID, -1, 0); fault.KindOf(err) != fault.InvalidArgument {
		t.Errorf("negative offset error = %v, want InvalidArgument", err)
	}
}

func TestService_ListChildrenSkipsVanished(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, zap.NewNop())
	folders := folder.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := seedUser(t, ctx, db, "alice")
	kept := seedChildFolder(t, ctx, db, alice, alice.RootFolderID, "kept")
	gone := seedChildFolder(t, ctx, db, alice, alice.RootFolderID, "gone")

	// Simulate a record vanishing between membership read and resolution.
	if err := folders.Delete(ctx, gone.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	page, err := svc.ListChildren(ctx, alice.RootFolderID, 0, 10)
	if err != nil {
		t.Fatalf("ListChildren() error = %v", err)
	}
	if len(page.Subfolders) != 1 || page.Subfolders[0].ID != kept.ID {
		t.Errorf("Subfolders = %+v, want only the surviving folder", page.Subfolders)
	}
}

func TestService_ResolvePath(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, zap.NewNop())
	folders := folder.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := seedUser(t, ctx, db, "alice")
	bob := seedUser(t, ctx, db, "bob")
	a := seedChildFolder(t, ctx, db, alice, alice.RootFolderID, "a")
	b := seedChildFolder(t, ctx, db, alice, a.ID, "b")

	path, err := svc.ResolvePath(ctx, []string{alice.RootFolderID, a.ID, b.ID})
	if err != nil {
		t.Fatalf("ResolvePath() error = %v", err)
	}
	if len(path) != 3 || path[0].ID != alice.RootFolderID || path[2].ID != b.ID {
		t.Errorf("path = %+v", path)
	}

	if _, err := svc.ResolvePath(ctx, nil); fault.KindOf(err) != fault.InvalidArgument {
		t.Errorf("empty path error = %v, want InvalidArgument", err)
	}
	if _, err := svc.ResolvePath(ctx, []string{alice.RootFolderID, b.ID}); fault.KindOf(err) != fault.NotFound {
		t.Errorf("non-child segment error = %v, want NotFound", err)
	}
	if _, err := svc.ResolvePath(ctx, []string{alice.RootFolderID, "missing"}); fault.KindOf(err) != fault.NotFound {
		t.Errorf("missing segment error = %v, want NotFound", err)
	}

	// A share recipient resolves through their shared root via the
	// overlay entry.
	if err := folders.AddSharedUser(ctx, a.ID, bob.ID); err != nil {
		t.Fatalf("AddSharedUser() error = %v", err)
	}
	if err := folders.PushSubfolder(ctx, bob.SharedRootFolderID, a.ID); err != nil {
		t.Fatalf("PushSubfolder() error = %v", err)
	}
	path, err = svc.ResolvePath(ctx, []string{bob.SharedRootFolderID, a.ID, b.ID})
	if err != nil {
		t.Fatalf("ResolvePath() through shared root error = %v", err)
	}
	if len(path) != 3 {
		t.Errorf("shared path length = %d, want 3", len(path))
	}
}
