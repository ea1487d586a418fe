package hierarchy

import (
	"context"
	"strings"
	"testing"

	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/jwagner/imagevault/internal/app/store/folder"
	userstore "github.com/jwagner/imagevault/internal/app/store/users"
	"github.com/jwagner/imagevault/internal/app/system/fault"
	"github.com/jwagner/imagevault/internal/domain/models"
	"github.com/jwagner/imagevault/internal/testutil"
)

func newService(t *testing.T) (*Service, *mongo.Database, storage.Store) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	blobs := testutil.SetupTestStorage(t)
	return New(db, blobs, zap.NewNop()), db, blobs
}

// seedUser inserts a user with its two root folders.
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

// addImage commits an image directly: content, record, membership, size.
func addImage(t *testing.T, ctx context.Context, svc *Service, blobs storage.Store, folderID, name string, size int64) *models.Image {
	t.Helper()

	id := uuid.New().String() + ".png"
	content := strings.NewReader(strings.Repeat("x", int(size)))
	if err := blobs.Put(ctx, id, content, &storage.PutOptions{ContentType: "image/png"}); err != nil {
		t.Fatalf("storing content: %v", err)
	}
	img := &models.Image{ID: id, Name: name, Size: size, ContentType: "image/png"}
	if err := svc.Images().Insert(ctx, img); err != nil {
		t.Fatalf("inserting image: %v", err)
	}
	if err := svc.Folders().PushImage(ctx, folderID, id); err != nil {
		t.Fatalf("attaching image: %v", err)
	}
	if err := svc.PropagateSize(ctx, folderID, size); err != nil {
		t.Fatalf("propagating size: %v", err)
	}
	return img
}

func folderSize(t *testing.T, ctx context.Context, svc *Service, id string) int64 {
	t.Helper()
	f, err := svc.Folders().GetByID(ctx, id)
	if err != nil {
		t.Fatalf("loading folder %s: %v", id, err)
	}
	return f.Size
}

func TestService_CreateFolder(t *testing.T) {
	svc, db, _ := newService(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := seedUser(t, ctx, db, "alice")

	created, err := svc.CreateFolder(ctx, alice.ID, alice.RootFolderID, "Photos")
	if err != nil {
		t.Fatalf("CreateFolder() error = %v", err)
	}
	if created.OwnerID != alice.ID || created.ParentID == nil || *created.ParentID != alice.RootFolderID {
		t.Errorf("created = %+v", created)
	}

	root, _ := svc.Folders().GetByID(ctx, alice.RootFolderID)
	if !root.HasSubfolder(created.ID) {
		t.Error("parent should list the new folder")
	}

	if _, err := svc.CreateFolder(ctx, alice.ID, alice.RootFolderID, "Photos"); fault.KindOf(err) != fault.Conflict {
		t.Errorf("duplicate sibling name error = %v, want Conflict", err)
	}
	if _, err := svc.CreateFolder(ctx, alice.ID, alice.RootFolderID, "bad/name"); fault.KindOf(err) != fault.InvalidArgument {
		t.Errorf("reserved character error = %v, want InvalidArgument", err)
	}
	if _, err := svc.CreateFolder(ctx, alice.ID, "missing", "X"); fault.KindOf(err) != fault.NotFound {
		t.Errorf("missing parent error = %v, want NotFound", err)
	}

	bob := seedUser(t, ctx, db, "bob")
	if _, err := svc.CreateFolder(ctx, bob.ID, alice.RootFolderID, "Intrusion"); fault.KindOf(err) != fault.PermissionDenied {
		t.Errorf("non-owner error = %v, want PermissionDenied", err)
	}

	// Same name under a different parent is fine.
	if _, err := svc.CreateFolder(ctx, alice.ID, created.ID, "Photos"); err != nil {
		t.Errorf("nested same-name create error = %v", err)
	}
}

func TestService_CreateFolder_TrimsName(t *testing.T) {
	svc, db, _ := newService(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := seedUser(t, ctx, db, "alice")

	created, err := svc.CreateFolder(ctx, alice.ID, alice.RootFolderID, "  Photos ")
	if err != nil {
		t.Fatalf("CreateFolder() error = %v", err)
	}
	if created.Name != "Photos" {
		t.Errorf("Name = %q, want %q", created.Name, "Photos")
	}
	stored, err := svc.Folders().GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.Name != "Photos" {
		t.Errorf("stored Name = %q, want %q", stored.Name, "Photos")
	}

	// A padded spelling of an existing sibling name is the same name.
	if _, err := svc.CreateFolder(ctx, alice.ID, alice.RootFolderID, " Photos"); fault.KindOf(err) != fault.Conflict {
		t.Errorf("padded duplicate error = %v, want Conflict", err)
	}
}

func TestService_PropagateSize(t *testing.T) {
	svc, db, _ := newService(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := seedUser(t, ctx, db, "alice")
	a, _ := svc.CreateFolder(ctx, alice.ID, alice.RootFolderID, "a")
	b, err := svc.CreateFolder(ctx, alice.ID, a.ID, "b")
	if err != nil {
		t.Fatalf("CreateFolder() error = %v", err)
	}

	if err := svc.PropagateSize(ctx, b.ID, 300000); err != nil {
		t.Fatalf("PropagateSize() error = %v", err)
	}
	for _, id := range []string{b.ID, a.ID, alice.RootFolderID} {
		if got := folderSize(t, ctx, svc, id); got != 300000 {
			t.Errorf("size of %s = %d, want 300000", id, got)
		}
	}

	if err := svc.PropagateSize(ctx, b.ID, -100000); err != nil {
		t.Fatalf("PropagateSize() error = %v", err)
	}
	if got := folderSize(t, ctx, svc, alice.RootFolderID); got != 200000 {
		t.Errorf("root size = %d, want 200000", got)
	}

	if err := svc.PropagateSize(ctx, "missing", 1); fault.KindOf(err) != fault.Inconsistent {
		t.Errorf("missing folder error = %v, want Inconsistent", err)
	}
}

func TestService_DeleteFolder_Cascade(t *testing.T) {
	svc, db, blobs := newService(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := seedUser(t, ctx, db, "alice")
	bob := seedUser(t, ctx, db, "bob")

	photos, _ := svc.CreateFolder(ctx, alice.ID, alice.RootFolderID, "Photos")
	trips, _ := svc.CreateFolder(ctx, alice.ID, photos.ID, "Trips")
	img1 := addImage(t, ctx, svc, blobs, photos.ID, "cat.png", 100000)
	img2 := addImage(t, ctx, svc, blobs, trips.ID, "dog.png", 200000)

	// Share the subtree folder with bob so the overlay edge must be
	// cleaned up by the cascade.
	if err := svc.Folders().AddSharedUser(ctx, trips.ID, bob.ID); err != nil {
		t.Fatalf("AddSharedUser() error = %v", err)
	}
	if err := svc.Folders().PushSubfolder(ctx, bob.SharedRootFolderID, trips.ID); err != nil {
		t.Fatalf("PushSubfolder() error = %v", err)
	}

	if got := folderSize(t, ctx, svc, alice.RootFolderID); got != 300000 {
		t.Fatalf("root size before delete = %d, want 300000", got)
	}

	if err := svc.DeleteFolder(ctx, alice.ID, photos.ID); err != nil {
		t.Fatalf("DeleteFolder() error = %v", err)
	}

	for _, id := range []string{photos.ID, trips.ID} {
		if _, err := svc.Folders().GetByID(ctx, id); err != mongo.ErrNoDocuments {
			t.Errorf("folder %s should be deleted, got err = %v", id, err)
		}
	}
	for _, id := range []string{img1.ID, img2.ID} {
		if _, err := svc.Images().GetByID(ctx, id); err != mongo.ErrNoDocuments {
			t.Errorf("image %s should be deleted, got err = %v", id, err)
		}
		if _, err := blobs.Get(ctx, id); err == nil {
			t.Errorf("content of %s should be deleted", id)
		}
	}

	root, _ := svc.Folders().GetByID(ctx, alice.RootFolderID)
	if root.HasSubfolder(photos.ID) {
		t.Error("parent still references the deleted folder")
	}
	if root.Size != 0 {
		t.Errorf("root size after delete = %d, want 0", root.Size)
	}

	bobShared, _ := svc.Folders().GetByID(ctx, bob.SharedRootFolderID)
	if bobShared.HasSubfolder(trips.ID) {
		t.Error("share recipient still references the deleted folder")
	}
}

func TestService_DeleteFolder_Guards(t *testing.T) {
	svc, db, _ := newService(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := seedUser(t, ctx, db, "alice")
	bob := seedUser(t, ctx, db, "bob")
	photos, _ := svc.CreateFolder(ctx, alice.ID, alice.RootFolderID, "Photos")

	if err := svc.DeleteFolder(ctx, alice.ID, alice.RootFolderID); fault.KindOf(err) != fault.InvalidArgument {
		t.Errorf("root delete error = %v, want InvalidArgument", err)
	}
	if err := svc.DeleteFolder(ctx, bob.ID, photos.ID); fault.KindOf(err) != fault.PermissionDenied {
		t.Errorf("non-owner delete error = %v, want PermissionDenied", err)
	}
	if err := svc.DeleteFolder(ctx, alice.ID, "missing"); fault.KindOf(err) != fault.NotFound {
		t.Errorf("missing folder delete error = %v, want NotFound", err)
	}

	// The guarded calls must not have touched anything.
	if _, err := svc.Folders().GetByID(ctx, photos.ID); err != nil {
		t.Errorf("folder should survive guarded deletes, got err = %v", err)
	}
}

func TestService_DeleteRoot_SkipsSharedOverlay(t *testing.T) {
	svc, db, _ := newService(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := seedUser(t, ctx, db, "alice")
	bob := seedUser(t, ctx, db, "bob")

	// Bob shares a folder with alice; it appears in alice's shared root
	// as an overlay entry but remains owned by bob.
	bobPhotos, _ := svc.CreateFolder(ctx, bob.ID, bob.RootFolderID, "Photos")
	if err := svc.Folders().AddSharedUser(ctx, bobPhotos.ID, alice.ID); err != nil {
		t.Fatalf("AddSharedUser() error = %v", err)
	}
	if err := svc.Folders().PushSubfolder(ctx, alice.SharedRootFolderID, bobPhotos.ID); err != nil {
		t.Fatalf("PushSubfolder() error = %v", err)
	}

	if err := svc.DeleteRoot(ctx, alice.SharedRootFolderID); err != nil {
		t.Fatalf("DeleteRoot() error = %v", err)
	}

	if _, err := svc.Folders().GetByID(ctx, alice.SharedRootFolderID); err != mongo.ErrNoDocuments {
		t.Errorf("shared root should be deleted, got err = %v", err)
	}
	if _, err := svc.Folders().GetByID(ctx, bobPhotos.ID); err != nil {
		t.Errorf("bob's folder must survive alice's teardown, got err = %v", err)
	}

	// Re-running a teardown over a missing root is a no-op.
	if err := svc.DeleteRoot(ctx, alice.SharedRootFolderID); err != nil {
		t.Errorf("repeated DeleteRoot() error = %v", err)
	}
}

func TestService_DeleteImage(t *testing.T) {
	svc, db, blobs := newService(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := seedUser(t, ctx, db, "alice")
	bob := seedUser(t, ctx, db, "bob")
	photos, _ := svc.CreateFolder(ctx, alice.ID, alice.RootFolderID, "Photos")
	img := addImage(t, ctx, svc, blobs, photos.ID, "cat.png", 300000)

	if err := svc.DeleteImage(ctx, bob.ID, photos.ID, img.ID); fault.KindOf(err) != fault.PermissionDenied {
		t.Errorf("non-owner delete error = %v, want PermissionDenied", err)
	}
	if err := svc.DeleteImage(ctx, alice.ID, photos.ID, "missing.png"); fault.KindOf(err) != fault.NotFound {
		t.Errorf("missing image delete error = %v, want NotFound", err)
	}

	if err := svc.DeleteImage(ctx, alice.ID, photos.ID, img.ID); err != nil {
		t.Fatalf("DeleteImage() error = %v", err)
	}

	if _, err := svc.Images().GetByID(ctx, img.ID); err != mongo.ErrNoDocuments {
		t.Errorf("image record should be deleted, got err = %v", err)
	}
	if _, err := blobs.Get(ctx, img.ID); err == nil {
		t.Error("image content should be deleted")
	}
	f, _ := svc.Folders().GetByID(ctx, photos.ID)
	if f.HasImage(img.ID) {
		t.Error("folder still references the deleted image")
	}
	if got := folderSize(t, ctx, svc, alice.RootFolderID); got != 0 {
		t.Errorf("root size after delete = %d, want 0", got)
	}
}
