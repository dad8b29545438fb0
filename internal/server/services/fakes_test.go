package services

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/dmitrijs2005/clientkeeper/internal/common"
	"github.com/dmitrijs2005/clientkeeper/internal/dbx"
	"github.com/dmitrijs2005/clientkeeper/internal/server/models"
	"github.com/dmitrijs2005/clientkeeper/internal/server/notify"
	"github.com/dmitrijs2005/clientkeeper/internal/server/repositories/addresses"
	"github.com/dmitrijs2005/clientkeeper/internal/server/repositories/clients"
)

// --- clients ---

type fakeClientsRepo struct {
	rows   map[int64]*models.Client
	nextID int64
	calls  []string

	findErr       error
	createErr     error
	updateErr     error
	hardDeleteErr error
	softDeleteErr error
	overwriteErr  error
}

func newFakeClientsRepo() *fakeClientsRepo {
	return &fakeClientsRepo{rows: map[int64]*models.Client{}, nextID: 1}
}

func (f *fakeClientsRepo) add(c *models.Client) *models.Client {
	if c.ID == 0 {
		c.ID = f.nextID
		f.nextID++
	}
	cp := *c
	f.rows[c.ID] = &cp
	return c
}

func (f *fakeClientsRepo) active(id int64) (*models.Client, bool) {
	c, ok := f.rows[id]
	if !ok || c.DeletedAt != nil {
		return nil, false
	}
	cp := *c
	return &cp, true
}

func (f *fakeClientsRepo) FindByEmail(_ context.Context, email string) (*models.Client, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	for id, c := range f.rows {
		if c.DeletedAt == nil && strings.EqualFold(c.Email, email) {
			cp, _ := f.active(id)
			return cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeClientsRepo) FindByID(_ context.Context, id int64) (*models.Client, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	if c, ok := f.active(id); ok {
		return c, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeClientsRepo) List(_ context.Context, limit, offset int) ([]*models.Client, error) {
	f.calls = append(f.calls, "List")
	var out []*models.Client
	for id := int64(1); id < f.nextID; id++ {
		if c, ok := f.active(id); ok {
			out = append(out, c)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeClientsRepo) Create(_ context.Context, c *models.Client) (*models.Client, error) {
	f.calls = append(f.calls, "Create")
	if f.createErr != nil {
		return nil, f.createErr
	}
	c.CreatedAt = time.Now().UTC()
	return f.add(c), nil
}

func (f *fakeClientsRepo) Update(ctx context.Context, existing *models.Client, patch models.ClientPatch) (*models.Client, error) {
	f.calls = append(f.calls, "Update")
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	updated := patch.Apply(*existing)
	if err := f.Overwrite(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (f *fakeClientsRepo) Overwrite(_ context.Context, c *models.Client) error {
	f.calls = append(f.calls, "Overwrite")
	if f.overwriteErr != nil {
		return f.overwriteErr
	}
	if _, ok := f.rows[c.ID]; !ok {
		return common.ErrorNotFound
	}
	cp := *c
	f.rows[c.ID] = &cp
	return nil
}

func (f *fakeClientsRepo) SetConfirmed(_ context.Context, id int64, confirmed bool) error {
	f.calls = append(f.calls, "SetConfirmed")
	c, ok := f.rows[id]
	if !ok {
		return common.ErrorNotFound
	}
	c.IsConfirmed = confirmed
	return nil
}

func (f *fakeClientsRepo) SoftDelete(_ context.Context, id int64) error {
	f.calls = append(f.calls, "SoftDelete")
	if f.softDeleteErr != nil {
		return f.softDeleteErr
	}
	c, ok := f.rows[id]
	if !ok || c.DeletedAt != nil {
		return common.ErrorNotFound
	}
	now := time.Now()
	c.DeletedAt = &now
	return nil
}

func (f *fakeClientsRepo) Restore(_ context.Context, id int64) error {
	f.calls = append(f.calls, "Restore")
	c, ok := f.rows[id]
	if !ok {
		return common.ErrorNotFound
	}
	c.DeletedAt = nil
	return nil
}

func (f *fakeClientsRepo) HardDelete(_ context.Context, id int64) error {
	f.calls = append(f.calls, "HardDelete")
	if f.hardDeleteErr != nil {
		return f.hardDeleteErr
	}
	if _, ok := f.rows[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.rows, id)
	return nil
}

// --- addresses ---

type fakeAddressesRepo struct {
	rows   map[int64]*models.Address
	nextID int64
	calls  []string

	findErr   error
	createErr error
	updateErr error
}

func newFakeAddressesRepo() *fakeAddressesRepo {
	return &fakeAddressesRepo{rows: map[int64]*models.Address{}, nextID: 1}
}

func (f *fakeAddressesRepo) byClient(clientID int64) *models.Address {
	for _, a := range f.rows {
		if a.ClientID == clientID && a.DeletedAt == nil {
			return a
		}
	}
	return nil
}

func (f *fakeAddressesRepo) FindByClientID(_ context.Context, clientID int64) (*models.Address, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	if a := f.byClient(clientID); a != nil {
		cp := *a
		return &cp, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeAddressesRepo) Create(_ context.Context, a *models.Address) (*models.Address, error) {
	f.calls = append(f.calls, "Create")
	if f.createErr != nil {
		return nil, f.createErr
	}
	a.ID = f.nextID
	f.nextID++
	cp := *a
	f.rows[a.ID] = &cp
	return a, nil
}

func (f *fakeAddressesRepo) Update(ctx context.Context, existing *models.Address, patch models.AddressPatch) (*models.Address, error) {
	f.calls = append(f.calls, "Update")
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	updated := patch.Apply(*existing)
	if err := f.Overwrite(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (f *fakeAddressesRepo) Overwrite(_ context.Context, a *models.Address) error {
	f.calls = append(f.calls, "Overwrite")
	if _, ok := f.rows[a.ID]; !ok {
		return common.ErrorNotFound
	}
	cp := *a
	f.rows[a.ID] = &cp
	return nil
}

func (f *fakeAddressesRepo) Delete(_ context.Context, id int64) error {
	f.calls = append(f.calls, "Delete")
	if _, ok := f.rows[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeAddressesRepo) SoftDeleteByClientID(_ context.Context, clientID int64) error {
	f.calls = append(f.calls, "SoftDeleteByClientID")
	if a := f.byClient(clientID); a != nil {
		now := time.Now()
		a.DeletedAt = &now
	}
	return nil
}

func (f *fakeAddressesRepo) RestoreByClientID(_ context.Context, clientID int64) error {
	f.calls = append(f.calls, "RestoreByClientID")
	for _, a := range f.rows {
		if a.ClientID == clientID {
			a.DeletedAt = nil
		}
	}
	return nil
}

// --- manager ---

type fakeRepoManager struct {
	c *fakeClientsRepo
	a *fakeAddressesRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Clients(dbx.DBTX) clients.Repository          { return m.c }
func (m *fakeRepoManager) Addresses(dbx.DBTX) addresses.Repository      { return m.a }

// --- images ---

type fakeImageStore struct {
	objects map[string]bool
	seq     int

	uploadErr error
	deleteErr error
}

func newFakeImageStore() *fakeImageStore {
	return &fakeImageStore{objects: map[string]bool{}}
}

func (f *fakeImageStore) UploadEncodedImage(_ context.Context, encoded string) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.seq++
	key := "images/" + string(rune('a'+f.seq-1)) + ".png"
	f.objects[key] = true
	return key, nil
}

func (f *fakeImageStore) DeleteImage(_ context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.objects, key)
	return nil
}

func (f *fakeImageStore) URL(_ context.Context, key string) (string, error) {
	return "http://minio/" + key, nil
}

// --- notifier ---

type sentMessage struct {
	clientID int64
	to       string
	kind     notify.Kind
	extra    string
}

type fakeNotifier struct {
	sent []sentMessage
	err  error
}

func (f *fakeNotifier) SendTemplatedMessage(_ context.Context, c *models.Client, kind notify.Kind, extra string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{clientID: c.ID, to: c.Email, kind: kind, extra: extra})
	return nil
}
