package service

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-backend/internal/domains/media/model"
	productModel "marketplace-backend/internal/domains/product/model"
	productRepo "marketplace-backend/internal/domains/product/repository"
	"marketplace-backend/internal/infrastructure/storage"
	"marketplace-backend/internal/shared"
)

// =====================================================
// FAKES
// =====================================================

type mediaRecord struct {
	media     *model.ProductMedia
	processed *model.ProcessedMedia
}

type fakeMediaRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]*mediaRecord
}

func newFakeMediaRepo() *fakeMediaRepo {
	return &fakeMediaRepo{records: make(map[uuid.UUID]*mediaRecord)}
}

func (r *fakeMediaRepo) CreateMedia(ctx context.Context, media *model.ProductMedia, processed *model.ProcessedMedia) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	media.CreatedAt = now
	processed.CreatedAt = now
	processed.UpdatedAt = now
	r.records[media.ID] = &mediaRecord{media: media, processed: processed}
	return nil
}

func (r *fakeMediaRepo) GetMediaByID(ctx context.Context, id uuid.UUID) (*model.ProductMedia, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, model.ErrMediaNotFound
	}
	cp := *rec.media
	return &cp, nil
}

func (r *fakeMediaRepo) GetProcessedByMediaID(ctx context.Context, mediaID uuid.UUID) (*model.ProcessedMedia, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[mediaID]
	if !ok {
		return nil, model.ErrProcessedNotFound
	}
	cp := *rec.processed
	return &cp, nil
}

func (r *fakeMediaRepo) SetProcessing(ctx context.Context, mediaID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[mediaID]
	if !ok {
		return 0, model.ErrProcessedNotFound
	}
	rec.processed.Status = model.ProcessingStatusProcessing
	rec.processed.Attempts++
	return rec.processed.Attempts, nil
}

func (r *fakeMediaRepo) MarkCompleted(ctx context.Context, mediaID uuid.UUID, processedURL, thumbnailURL string, fileSize int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[mediaID]
	if !ok {
		return model.ErrProcessedNotFound
	}
	rec.processed.Status = model.ProcessingStatusCompleted
	rec.processed.ProcessedURL = &processedURL
	rec.processed.ThumbnailURL = &thumbnailURL
	rec.processed.FileSize = fileSize
	return nil
}

func (r *fakeMediaRepo) MarkFailed(ctx context.Context, mediaID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[mediaID]
	if !ok {
		return model.ErrProcessedNotFound
	}
	rec.processed.Status = model.ProcessingStatusFailed
	return nil
}

type uploadedObject struct {
	data        []byte
	contentType string
}

type fakeObjectStorage struct {
	mu      sync.Mutex
	objects map[string]uploadedObject
}

func newFakeObjectStorage() *fakeObjectStorage {
	return &fakeObjectStorage{objects: make(map[string]uploadedObject)}
}

func (s *fakeObjectStorage) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = uploadedObject{data: data, contentType: contentType}
	return "http://storage.local/media-bucket/" + key, nil
}

func (s *fakeObjectStorage) Download(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, model.ErrMediaNotFound
	}
	return obj.data, nil
}

func (s *fakeObjectStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

type fakeProductRepo struct {
	mu       sync.Mutex
	products map[uuid.UUID]*productModel.Product
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{products: make(map[uuid.UUID]*productModel.Product)}
}

func (r *fakeProductRepo) add(p *productModel.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[p.ID] = p
}

func (r *fakeProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*productModel.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, productRepo.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProductRepo) ListLowStock(ctx context.Context, threshold int) ([]productModel.Product, error) {
	return nil, nil
}

type fakeEnqueuer struct {
	mu    sync.Mutex
	tasks []*asynq.Task
}

func (e *fakeEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tasks = append(e.tasks, task)
	return &asynq.TaskInfo{}, nil
}

// =====================================================
// HELPERS
// =====================================================

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x += 10 {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 30, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type mediaTestEnv struct {
	repo     *fakeMediaRepo
	products *fakeProductRepo
	storage  *fakeObjectStorage
	enq      *fakeEnqueuer
	svc      MediaService
}

func newMediaTestEnv() *mediaTestEnv {
	env := &mediaTestEnv{
		repo:     newFakeMediaRepo(),
		products: newFakeProductRepo(),
		storage:  newFakeObjectStorage(),
		enq:      &fakeEnqueuer{},
	}
	env.svc = NewMediaService(env.repo, env.products, env.storage, storage.NewImageProcessor(), env.enq)
	return env
}

// seedProduct returns a product and its owning seller's id.
func (env *mediaTestEnv) seedProduct() (uuid.UUID, uuid.UUID) {
	productID, sellerID := uuid.New(), uuid.New()
	env.products.add(&productModel.Product{ID: productID, SellerID: sellerID, Name: "Widget", IsActive: true})
	return productID, sellerID
}

func (env *mediaTestEnv) register(t *testing.T, mediaType, sourceURL string) *model.MediaStatusResponse {
	t.Helper()
	productID, sellerID := env.seedProduct()
	resp, err := env.svc.RegisterMedia(context.Background(), sellerID, "seller", model.RegisterMediaRequest{
		ProductID: productID,
		Type:      mediaType,
		SourceURL: sourceURL,
	})
	require.NoError(t, err)
	return resp
}

// =====================================================
// REGISTER
// =====================================================

func TestRegisterMedia_ImageEnqueuesProcessing(t *testing.T) {
	env := newMediaTestEnv()

	resp := env.register(t, model.MediaTypeImage, "http://example.com/photo.png")
	assert.Equal(t, model.ProcessingStatusPending, resp.Processed.Status)

	require.Len(t, env.enq.tasks, 1)
	assert.Equal(t, shared.TypeProcessProductMedia, env.enq.tasks[0].Type())

	var payload shared.ProcessMediaPayload
	require.NoError(t, json.Unmarshal(env.enq.tasks[0].Payload(), &payload))
	assert.Equal(t, resp.Media.ID, payload.MediaID)
}

func TestRegisterMedia_VideoStaysPending(t *testing.T) {
	env := newMediaTestEnv()

	resp := env.register(t, model.MediaTypeVideo, "http://example.com/clip.mp4")
	assert.Equal(t, model.ProcessingStatusPending, resp.Processed.Status)
	assert.Empty(t, env.enq.tasks)
}

func TestRegisterMedia_RejectsBadRequest(t *testing.T) {
	env := newMediaTestEnv()
	productID, sellerID := env.seedProduct()

	_, err := env.svc.RegisterMedia(context.Background(), sellerID, "seller", model.RegisterMediaRequest{
		ProductID: productID,
		Type:      "hologram",
		SourceURL: "http://example.com/x.png",
	})
	assert.Error(t, err)

	_, err = env.svc.RegisterMedia(context.Background(), sellerID, "seller", model.RegisterMediaRequest{
		ProductID: productID,
		Type:      model.MediaTypeImage,
		SourceURL: "not a url",
	})
	assert.Error(t, err)
}

func TestRegisterMedia_UnknownProduct(t *testing.T) {
	env := newMediaTestEnv()

	_, err := env.svc.RegisterMedia(context.Background(), uuid.New(), "seller", model.RegisterMediaRequest{
		ProductID: uuid.New(),
		Type:      model.MediaTypeImage,
		SourceURL: "http://example.com/photo.png",
	})
	require.ErrorIs(t, err, model.ErrProductNotFound)
	assert.Empty(t, env.enq.tasks)
}

// Only the product's seller may attach media; a stranger is turned away
// before anything is persisted or enqueued.
func TestRegisterMedia_RejectsNonOwner(t *testing.T) {
	env := newMediaTestEnv()
	productID, _ := env.seedProduct()

	for _, role := range []string{"buyer", "seller"} {
		_, err := env.svc.RegisterMedia(context.Background(), uuid.New(), role, model.RegisterMediaRequest{
			ProductID: productID,
			Type:      model.MediaTypeImage,
			SourceURL: "http://example.com/photo.png",
		})
		require.ErrorIs(t, err, model.ErrNotProductOwner)
	}

	assert.Empty(t, env.repo.records)
	assert.Empty(t, env.enq.tasks)
}

func TestRegisterMedia_AdminMayActForAnySeller(t *testing.T) {
	env := newMediaTestEnv()
	productID, _ := env.seedProduct()

	resp, err := env.svc.RegisterMedia(context.Background(), uuid.New(), "admin", model.RegisterMediaRequest{
		ProductID: productID,
		Type:      model.MediaTypeImage,
		SourceURL: "http://example.com/photo.png",
	})
	require.NoError(t, err)
	assert.Equal(t, model.ProcessingStatusPending, resp.Processed.Status)
	assert.Len(t, env.enq.tasks, 1)
}

// =====================================================
// PROCESS
// =====================================================

func TestProcess_ProducesBothRenditions(t *testing.T) {
	source := pngBytes(t, 1600, 900)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(source)
	}))
	defer srv.Close()

	env := newMediaTestEnv()
	resp := env.register(t, model.MediaTypeImage, srv.URL+"/photo.png")
	mediaID := resp.Media.ID

	require.NoError(t, env.svc.Process(context.Background(), mediaID))

	status, err := env.svc.GetStatus(context.Background(), mediaID)
	require.NoError(t, err)
	assert.Equal(t, model.ProcessingStatusCompleted, status.Processed.Status)
	assert.Equal(t, int64(len(source)), status.Processed.FileSize)
	assert.Equal(t, 1, status.Processed.Attempts)

	require.NotNil(t, status.Processed.ProcessedURL)
	require.NotNil(t, status.Processed.ThumbnailURL)
	assert.Contains(t, *status.Processed.ProcessedURL, "media/"+mediaID.String()+"/display.jpg")
	assert.Contains(t, *status.Processed.ThumbnailURL, "media/"+mediaID.String()+"/thumbnail.jpg")

	display, err := env.storage.Download(context.Background(), "media/"+mediaID.String()+"/display.jpg")
	require.NoError(t, err)
	cfg, format, err := image.DecodeConfig(bytes.NewReader(display))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.LessOrEqual(t, cfg.Width, storage.DisplayLongEdge)
	assert.LessOrEqual(t, cfg.Height, storage.DisplayLongEdge)
}

func TestProcess_FetchFailureMarksFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	env := newMediaTestEnv()
	resp := env.register(t, model.MediaTypeImage, srv.URL+"/photo.png")

	// error must surface so the task retries
	err := env.svc.Process(context.Background(), resp.Media.ID)
	require.Error(t, err)

	status, _ := env.svc.GetStatus(context.Background(), resp.Media.ID)
	assert.Equal(t, model.ProcessingStatusFailed, status.Processed.Status)
	assert.Equal(t, 1, status.Processed.Attempts)
}

func TestProcess_NonImagePayloadMarksFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>definitely not an image</html>"))
	}))
	defer srv.Close()

	env := newMediaTestEnv()
	resp := env.register(t, model.MediaTypeImage, srv.URL+"/photo.png")

	require.Error(t, env.svc.Process(context.Background(), resp.Media.ID))

	status, _ := env.svc.GetStatus(context.Background(), resp.Media.ID)
	assert.Equal(t, model.ProcessingStatusFailed, status.Processed.Status)
}

func TestProcess_SkipsVideo(t *testing.T) {
	env := newMediaTestEnv()
	resp := env.register(t, model.MediaTypeVideo, "http://example.com/clip.mp4")

	require.NoError(t, env.svc.Process(context.Background(), resp.Media.ID))

	status, _ := env.svc.GetStatus(context.Background(), resp.Media.ID)
	assert.Equal(t, model.ProcessingStatusPending, status.Processed.Status)
	assert.Equal(t, 0, status.Processed.Attempts)
}

func TestProcess_UnknownMedia(t *testing.T) {
	env := newMediaTestEnv()
	err := env.svc.Process(context.Background(), uuid.New())
	require.ErrorIs(t, err, model.ErrMediaNotFound)
}
