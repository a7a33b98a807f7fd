package worker

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamledger/vms-api/internal/model"
	"github.com/streamledger/vms-api/internal/repository"
	"github.com/streamledger/vms-api/internal/storage"
	"github.com/streamledger/vms-api/pkg/logger"
)

type fakeVideoRepo struct {
	created []*model.Video
	updates []updateCall
}

type updateCall struct {
	id                 int64
	path, title, descr *string
}

func (f *fakeVideoRepo) Get(ctx context.Context, id int64) (*model.Video, error) {
	return nil, repository.ErrNotFound
}
func (f *fakeVideoRepo) GetDeleted(ctx context.Context, id int64) (*model.Video, error) {
	return nil, repository.ErrNotFound
}
func (f *fakeVideoRepo) List(ctx context.Context) ([]*model.Video, error) { return nil, nil }

func (f *fakeVideoRepo) Create(ctx context.Context, video *model.Video) error {
	video.ID = int64(len(f.created) + 1)
	f.created = append(f.created, video)
	return nil
}

func (f *fakeVideoRepo) Update(ctx context.Context, id int64, path, title, description *string) error {
	f.updates = append(f.updates, updateCall{id: id, path: path, title: title, descr: description})
	return nil
}

func (f *fakeVideoRepo) SoftDelete(ctx context.Context, id int64) error { return nil }
func (f *fakeVideoRepo) Restore(ctx context.Context, id int64) error    { return nil }

func newTestHandler(t *testing.T) (*VideoTaskHandler, *fakeVideoRepo, *storage.Store) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewStore(storage.Config{
		TempDir:   filepath.Join(root, "tmp"),
		UploadDir: filepath.Join(root, "uploads"),
	})
	require.NoError(t, err)

	repo := &fakeVideoRepo{}
	return NewVideoTaskHandler(repo, store, logger.NewLogger(nil)), repo, store
}

func payload(t *testing.T, task interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(task)
	require.NoError(t, err)
	return b
}

func TestHandleUploadPromotesAndCreates(t *testing.T) {
	h, repo, store := newTestHandler(t)

	tmp, err := store.SaveTemp(strings.NewReader("data"), "clip.mp4")
	require.NoError(t, err)

	task := model.UploadVideoTask{
		UserID:         1,
		OrganizationID: 2,
		Title:          "clip",
		Description:    "desc",
		Filename:       "clip.mp4",
		TmpPath:        tmp,
	}
	require.NoError(t, h.HandleUpload(context.Background(), payload(t, task)))

	require.Len(t, repo.created, 1)
	video := repo.created[0]
	assert.Equal(t, int64(2), video.OrganizationID)
	require.NotNil(t, video.Path)

	_, err = os.Stat(*video.Path)
	assert.NoError(t, err)
	_, err = os.Stat(tmp)
	assert.True(t, os.IsNotExist(err))
}

func TestHandleUploadMissingStagingCreatesNothing(t *testing.T) {
	h, repo, _ := newTestHandler(t)

	task := model.UploadVideoTask{
		UserID:         1,
		OrganizationID: 2,
		Title:          "clip",
		Filename:       "clip.mp4",
		TmpPath:        filepath.Join(t.TempDir(), "vanished"),
	}
	err := h.HandleUpload(context.Background(), payload(t, task))

	assert.Error(t, err)
	assert.Empty(t, repo.created, "no metadata row may exist when file placement failed")
}

func TestHandleUploadMalformedPayload(t *testing.T) {
	h, repo, _ := newTestHandler(t)

	err := h.HandleUpload(context.Background(), []byte("{not json"))
	assert.Error(t, err)
	assert.Empty(t, repo.created)
}

func TestHandleUpdateMetadataOnly(t *testing.T) {
	h, repo, _ := newTestHandler(t)

	title := "renamed"
	task := model.UpdateVideoTask{VideoID: 9, OrganizationID: 2, Title: &title}
	require.NoError(t, h.HandleUpdate(context.Background(), payload(t, task)))

	require.Len(t, repo.updates, 1)
	assert.Nil(t, repo.updates[0].path)
	assert.Equal(t, "renamed", *repo.updates[0].title)
	assert.Nil(t, repo.updates[0].descr)
}

func TestHandleUpdateWithFilePromotesFirst(t *testing.T) {
	h, repo, store := newTestHandler(t)

	tmp, err := store.SaveTemp(strings.NewReader("v2"), "v2.mp4")
	require.NoError(t, err)

	filename := "v2.mp4"
	task := model.UpdateVideoTask{VideoID: 9, OrganizationID: 2, Filename: &filename, TmpPath: &tmp}
	require.NoError(t, h.HandleUpdate(context.Background(), payload(t, task)))

	require.Len(t, repo.updates, 1)
	require.NotNil(t, repo.updates[0].path)
	_, err = os.Stat(*repo.updates[0].path)
	assert.NoError(t, err)
}

func TestHandleUpdateMissingStagingTouchesNothing(t *testing.T) {
	h, repo, _ := newTestHandler(t)

	gone := filepath.Join(t.TempDir(), "vanished")
	title := "renamed"
	task := model.UpdateVideoTask{VideoID: 9, OrganizationID: 2, Title: &title, TmpPath: &gone}
	err := h.HandleUpdate(context.Background(), payload(t, task))

	assert.Error(t, err)
	assert.Empty(t, repo.updates, "metadata must be untouched when file placement failed")
}
