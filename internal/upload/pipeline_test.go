package upload

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/radiusdt/campaign-studio/internal/apperr"
	"github.com/radiusdt/campaign-studio/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptedUploader fails the files named in fail and records call order.
type scriptedUploader struct {
	mu       sync.Mutex
	fail     map[string]bool
	calls    []string
	inFlight int
	maxSeen  int
}

func (u *scriptedUploader) UploadFile(_ context.Context, f models.PendingFile) (*models.UploadResponse, error) {
	u.mu.Lock()
	u.inFlight++
	if u.inFlight > u.maxSeen {
		u.maxSeen = u.inFlight
	}
	u.calls = append(u.calls, f.Name)
	u.mu.Unlock()

	defer func() {
		u.mu.Lock()
		u.inFlight--
		u.mu.Unlock()
	}()

	if u.fail[f.Name] {
		return nil, &apperr.RemoteCallError{Op: "upload_file", StatusCode: 500}
	}
	return &models.UploadResponse{
		URL: "https://cdn.example.com/" + f.Name,
		Raw: []byte(`{"url":"https://cdn.example.com/` + f.Name + `"}`),
	}, nil
}

func files(n int) []models.PendingFile {
	out := make([]models.PendingFile, n)
	for i := range out {
		out[i] = models.PendingFile{
			Name:     fmt.Sprintf("file-%d.png", i+1),
			MimeType: "image/png",
			Data:     []byte("data"),
			LocalRef: fmt.Sprintf("local://ref/%d", i+1),
		}
	}
	return out
}

func TestPipeline_EmptyBatch(t *testing.T) {
	p := NewPipeline(&scriptedUploader{}, zap.NewNop(), nil)

	outcomes, err := p.Run(context.Background(), nil, nil)
	assert.Nil(t, outcomes)
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "no files selected", ve.Message)
}

func TestPipeline_OutcomesMatchInput(t *testing.T) {
	const n = 4
	for k := 0; k <= n; k++ {
		t.Run(fmt.Sprintf("%d_of_%d_succeed", k, n), func(t *testing.T) {
			batch := files(n)
			fail := map[string]bool{}
			for i := k; i < n; i++ {
				fail[batch[i].Name] = true
			}
			uploader := &scriptedUploader{fail: fail}
			p := NewPipeline(uploader, zap.NewNop(), nil)

			outcomes, err := p.Run(context.Background(), batch, nil)
			require.NoError(t, err)
			require.Len(t, outcomes, n)

			for i, o := range outcomes {
				assert.Equal(t, batch[i].Name, o.File.Name)
				assert.Equal(t, i < k, o.Fulfilled(), o.File.Name)
			}
			assert.Equal(t, k == n, models.AllFulfilled(outcomes))
			assert.Len(t, uploader.calls, n, "no fail-fast")
		})
	}
}

func TestPipeline_MiddleFailureContinues(t *testing.T) {
	batch := files(3)
	uploader := &scriptedUploader{fail: map[string]bool{"file-2.png": true}}
	p := NewPipeline(uploader, zap.NewNop(), nil)

	outcomes, err := p.Run(context.Background(), batch, nil)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	assert.True(t, outcomes[0].Fulfilled())
	assert.Equal(t, "https://cdn.example.com/file-1.png", outcomes[0].File.URL)
	assert.JSONEq(t, `{"url":"https://cdn.example.com/file-1.png"}`, string(outcomes[0].Response))

	assert.Equal(t, models.UploadRejected, outcomes[1].Status)
	assert.NotEmpty(t, outcomes[1].Reason)
	assert.Empty(t, outcomes[1].File.URL)
	assert.Equal(t, "local://ref/2", outcomes[1].File.AccessibleURL())

	assert.True(t, outcomes[2].Fulfilled())
	assert.Equal(t, []string{"file-1.png", "file-2.png", "file-3.png"}, uploader.calls)
}

func TestPipeline_SequentialWithProgress(t *testing.T) {
	uploader := &scriptedUploader{}
	p := NewPipeline(uploader, zap.NewNop(), nil)

	var progress [][2]int
	_, err := p.Run(context.Background(), files(3), func(done, total int) {
		progress = append(progress, [2]int{done, total})
	})
	require.NoError(t, err)

	assert.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, progress)
	assert.Equal(t, 1, uploader.maxSeen)
}

type plainErrUploader struct{}

func (plainErrUploader) UploadFile(context.Context, models.PendingFile) (*models.UploadResponse, error) {
	return nil, errors.New("bucket not found")
}

func TestPipeline_NonRemoteFailureReason(t *testing.T) {
	p := NewPipeline(plainErrUploader{}, zap.NewNop(), nil)

	outcomes, err := p.Run(context.Background(), files(1), nil)
	require.NoError(t, err)
	assert.Equal(t, "bucket not found", outcomes[0].Reason)
}

func TestFilter(t *testing.T) {
	in := []models.PendingFile{
		{Name: "a.png", MimeType: "image/png"},
		{Name: "notes.txt", MimeType: "text/plain"},
		{Name: "b.mp4", MimeType: "VIDEO/MP4"},
		{Name: "unknown"},
	}

	accepted, rejected := Filter(in, []string{"image/", "video/"})
	require.Len(t, accepted, 2)
	assert.Equal(t, "a.png", accepted[0].Name)
	assert.Equal(t, "b.mp4", accepted[1].Name)
	require.Len(t, rejected, 2)
	assert.Equal(t, "notes.txt", rejected[0].Name)
}
