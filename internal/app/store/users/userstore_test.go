package userstore

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jwagner/imagevault/internal/domain/models"
	"github.com/jwagner/imagevault/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
)

func newUser(username string) models.User {
	return models.User{
		ID:                 uuid.New().String(),
		Username:           username,
		PasswordHash:       "$2a$10$fakefakefakefakefakefake",
		RootFolderID:       uuid.New().String(),
		SharedRootFolderID: uuid.New().String(),
	}
}

func TestStore_InsertAndLookup(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := newUser("alice")
	if err := store.Insert(ctx, &alice); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := store.GetByID(ctx, alice.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Username != "alice" || got.RootFolderID != alice.RootFolderID {
		t.Errorf("got %+v", got)
	}

	// Folded lookup is case-insensitive.
	got, err = store.GetByUsername(ctx, "ALICE")
	if err != nil {
		t.Fatalf("GetByUsername() error = %v", err)
	}
	if got.ID != alice.ID {
		t.Errorf("GetByUsername() = %s, want %s", got.ID, alice.ID)
	}
}

func TestStore_DuplicateUsernameRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	bob := newUser("bob")
	if err := store.Insert(ctx, &bob); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	dup := newUser("Bob")
	err := store.Insert(ctx, &dup)
	if err == nil {
		t.Fatal("second insert with folded-equal username should fail")
	}
	if !mongo.IsDuplicateKeyError(err) {
		t.Errorf("error = %v, want duplicate key", err)
	}
}

func TestStore_ListExcept(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := newUser("alice")
	bob := newUser("bob")
	carol := newUser("carol")
	for _, u := range []models.User{carol, alice, bob} {
		if err := store.Insert(ctx, &u); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	others, err := store.ListExcept(ctx, alice.ID)
	if err != nil {
		t.Fatalf("ListExcept() error = %v", err)
	}
	if len(others) != 2 {
		t.Fatalf("len = %d, want 2", len(others))
	}
	if others[0].Username != "bob" || others[1].Username != "carol" {
		t.Errorf("order = [%s %s], want sorted by username", others[0].Username, others[1].Username)
	}
}

func TestStore_Updates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := newUser("dave")
	if err := store.Insert(ctx, &u); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	if err := store.UpdateUsername(ctx, u.ID, "david"); err != nil {
		t.Fatalf("UpdateUsername() error = %v", err)
	}
	if err := store.UpdatePasswordHash(ctx, u.ID, "newhash"); err != nil {
		t.Fatalf("UpdatePasswordHash() error = %v", err)
	}

	got, _ := store.GetByID(ctx, u.ID)
	if got.Username != "david" || got.PasswordHash != "newhash" {
		t.Errorf("got %+v", got)
	}

	if err := store.UpdateUsername(ctx, "missing", "x"); err != mongo.ErrNoDocuments {
		t.Errorf("UpdateUsername(missing) error = %v, want ErrNoDocuments", err)
	}
}
