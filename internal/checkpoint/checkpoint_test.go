package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/pubenrich/internal/config"
	"github.com/sells-group/pubenrich/internal/dataset"
	"github.com/sells-group/pubenrich/internal/model"
	"github.com/sells-group/pubenrich/internal/resilience"
)

type mockS3 struct {
	mock.Mock
	bodies map[string]string
}

func (m *mockS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, aws.ToString(in.Bucket), aws.ToString(in.Key))
	if m.bodies != nil {
		b, _ := io.ReadAll(in.Body)
		m.bodies[aws.ToString(in.Key)] = string(b)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.PutObjectOutput), args.Error(1)
}

func TestFileStore_Save(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	ds := dataset.New(fs)
	st := NewFileStore(ds, "/cp", "publicaties_progress")

	p, err := st.Save(context.Background(), "run-1", 10, []model.Publication{{URL: "a"}})
	require.NoError(t, err)
	assert.Equal(t, "/cp/publicaties_progress_run-1_10.json", p)

	got, err := ds.Load(p)
	require.NoError(t, err)
	assert.Equal(t, "a", got[0].URL)
}

func TestFileStore_Defaults(t *testing.T) {
	t.Parallel()

	st := NewFileStore(dataset.New(afero.NewMemMapFs()), "", "")
	assert.Equal(t, "publications_progress_5.json", st.Path("", 5))
}

func TestFileStore_ResumedRunKeepsEarlierSnapshots(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	ds := dataset.New(fs)
	st := NewFileStore(ds, "/cp", "")

	first, err := st.Save(context.Background(), "run-a", 10, []model.Publication{{URL: "a", Theme: "Handhaving"}})
	require.NoError(t, err)
	second, err := st.Save(context.Background(), "run-b", 10, []model.Publication{{URL: "a"}})
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	kept, err := ds.Load(first)
	require.NoError(t, err)
	assert.Equal(t, "Handhaving", kept[0].Theme)
}

func TestFileStore_SaveFailures(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	st := NewFileStore(dataset.New(fs), "/cp", "")
	failures := []resilience.Failure{
		resilience.NewFailure(3, "https://x/y", "T", "fetch", errors.New("timeout")),
	}
	failures[0].At = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	p, err := st.SaveFailures(context.Background(), "run-1", failures)
	require.NoError(t, err)
	assert.Equal(t, "/cp/failures_run-1.json", p)

	raw, err := afero.ReadFile(fs, p)
	require.NoError(t, err)
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "https://x/y", decoded[0]["url"])
	assert.Equal(t, "fetch", decoded[0]["stage"])
}

func TestMirror_UploadsAfterLocalWrite(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	ds := dataset.New(fs)
	client := &mockS3{bodies: map[string]string{}}
	client.On("PutObject", mock.Anything, "bucket", "runs/cp_r1_2.json").Return(&s3.PutObjectOutput{}, nil)

	m := NewMirror(NewFileStore(ds, "/cp", "cp"), ds, client, "bucket", "runs")
	p, err := m.Save(context.Background(), "r1", 2, []model.Publication{{URL: "a"}})
	require.NoError(t, err)
	assert.Equal(t, "/cp/cp_r1_2.json", p)

	local, err := afero.ReadFile(fs, p)
	require.NoError(t, err)
	assert.Equal(t, string(local), client.bodies["runs/cp_r1_2.json"])
	client.AssertExpectations(t)
}

func TestMirror_UploadFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	ds := dataset.New(fs)
	client := &mockS3{}
	client.On("PutObject", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))

	m := NewMirror(NewFileStore(ds, "/cp", "cp"), ds, client, "bucket", "")
	p, err := m.SaveFailures(context.Background(), "r", nil)
	require.NoError(t, err)
	ok, err := afero.Exists(fs, p)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "failures_r.json", m.Key(p))
}

func TestFromConfig_LocalOnly(t *testing.T) {
	t.Parallel()

	st, err := FromConfig(context.Background(), config.CheckpointConfig{Dir: "/cp", Prefix: "x"}, dataset.New(afero.NewMemMapFs()))
	require.NoError(t, err)
	_, ok := st.(*FileStore)
	assert.True(t, ok)
}

func TestLoadFailures_RoundTrip(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	ds := dataset.New(fs)
	st := NewFileStore(ds, "/cp", "")
	failures := []resilience.Failure{
		resilience.NewFailure(4, "https://x/4", "", "complete", errors.New("529 overloaded")),
		resilience.NewFailure(9, "https://x/9", "", "parse", errors.New("no json")),
	}
	p, err := st.SaveFailures(context.Background(), "r", failures)
	require.NoError(t, err)

	got, err := LoadFailures(ds, p)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 9}, FailureIndices(got))
	assert.Equal(t, resilience.ClassTransient, got[0].Class)

	_, err = LoadFailures(ds, "/cp/missing.json")
	assert.Error(t, err)
}
