package verification

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/aiclient"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/apperror"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/extractor"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/imagecodec"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/repository"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var photo = &imagecodec.Image{Data: []byte("jpeg"), MIMEType: "image/jpeg"}

type recorder struct {
	mu        sync.Mutex
	calls     []string
	verifyErr error
	creditErr error
}

func (r *recorder) record(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recorder) generator(reply string, err error) aiclient.Generator {
	return aiclient.GeneratorFunc(func(ctx context.Context, images []imagecodec.Image, prompt string) (string, error) {
		r.record("ai")
		return reply, err
	})
}

func (r *recorder) MarkVerified(ctx context.Context, reportID string) (*repository.Report, error) {
	r.record("report:" + reportID)
	if r.verifyErr != nil {
		return nil, r.verifyErr
	}
	return &repository.Report{ID: reportID, Status: repository.ReportVerified}, nil
}

func (r *recorder) CreditCollection(ctx context.Context, userID, reportID string) (*repository.User, error) {
	r.record("credit:" + userID)
	if r.creditErr != nil {
		return nil, r.creditErr
	}
	return &repository.User{ID: userID, Point: 50, Score: 20}, nil
}

func collectSession(rec *recorder, reply string, genErr error) *Session {
	return New(Config{
		Generator: rec.generator(reply, genErr),
		Mode:      extractor.ModeCollect,
		Prompt:    aiclient.CollectPrompt("พลาสติก", "2"),
		Reports:   rec,
		Rewards:   rec,
	}, WithConfirmation("report-1", "collector-1", CollectMatchPolicy))
}

func TestStartWithoutImageStaysIdle(t *testing.T) {
	rec := &recorder{}
	s := collectSession(rec, `{}`, nil)

	_, err := s.Start(context.Background())
	assert.ErrorIs(t, err, apperror.ErrNoImage)
	assert.Equal(t, Idle, s.Status())
	assert.Empty(t, rec.Calls())
}

func TestSuccessfulCollectionVerifiesThenCredits(t *testing.T) {
	rec := &recorder{}
	s := collectSession(rec, "ผลการตรวจ: {\"trashTypeMatch\": true, \"quantityMatch\": true, \"confidence\": 0.92}", nil)
	require.NoError(t, s.Select(photo))

	outcome, err := s.Start(context.Background())
	require.NoError(t, err)
	assert.True(t, outcome.Accepted)
	assert.Equal(t, Success, s.Status())
	assert.Equal(t, []string{"ai", "report:report-1", "credit:collector-1"}, rec.Calls())
	require.NotNil(t, outcome.Collector)
	assert.Equal(t, 50, outcome.Collector.Point)
	assert.NotNil(t, s.Result())
	assert.NoError(t, s.Err())
}

func TestRewardGatedOnConfidence(t *testing.T) {
	cases := []struct {
		confidence string
		accepted   bool
	}{
		{"0.69", false},
		{"0.70", false},
		{"0.71", true},
	}
	for _, tc := range cases {
		t.Run(tc.confidence, func(t *testing.T) {
			rec := &recorder{}
			s := collectSession(rec, `{"trashTypeMatch": true, "quantityMatch": true, "confidence": `+tc.confidence+`}`, nil)
			require.NoError(t, s.Select(photo))

			outcome, err := s.Start(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tc.accepted, outcome.Accepted)
			assert.Equal(t, Success, s.Status())
			if tc.accepted {
				assert.Len(t, rec.Calls(), 3)
			} else {
				assert.Equal(t, []string{"ai"}, rec.Calls())
			}
		})
	}
}

func TestMismatchIsNotRewarded(t *testing.T) {
	rec := &recorder{}
	s := collectSession(rec, `{"trashTypeMatch": true, "quantityMatch": false, "confidence": 0.99}`, nil)
	require.NoError(t, s.Select(photo))

	outcome, err := s.Start(context.Background())
	require.NoError(t, err)
	assert.False(t, outcome.Accepted)
	assert.Equal(t, []string{"ai"}, rec.Calls())
}

func TestFailureStoresErrorAndNoResult(t *testing.T) {
	cases := []struct {
		name  string
		reply string
		err   error
		want  error
	}{
		{"network", "", apperror.Wrap(apperror.KindNetwork, "generate", errors.New("dial tcp")), apperror.ErrNetwork},
		{"malformed", "no json here", nil, apperror.ErrMalformedResponse},
		{"parse", "{not json}", nil, apperror.ErrParse},
		{"validation", `{"trashTypeMatch": true, "confidence": 0.9}`, nil, apperror.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := &recorder{}
			s := collectSession(rec, tc.reply, tc.err)
			require.NoError(t, s.Select(photo))

			outcome, err := s.Start(context.Background())
			assert.Nil(t, outcome)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, Failure, s.Status())
			assert.Nil(t, s.Result())
			assert.ErrorIs(t, s.Err(), tc.want)
			assert.Equal(t, []string{"ai"}, rec.Calls())
		})
	}
}

func TestSideEffectFailureKeepsSuccess(t *testing.T) {
	rec := &recorder{creditErr: apperror.New(apperror.KindUserNotFound, "collector-1")}
	s := collectSession(rec, `{"trashTypeMatch": true, "quantityMatch": true, "confidence": 0.9}`, nil)
	require.NoError(t, s.Select(photo))

	outcome, err := s.Start(context.Background())
	assert.ErrorIs(t, err, apperror.ErrUserNotFound)
	require.NotNil(t, outcome)
	assert.True(t, outcome.Accepted)
	assert.NotNil(t, outcome.Report)
	assert.Equal(t, Success, s.Status())

	rec = &recorder{verifyErr: apperror.New(apperror.KindInvalidTransition, "pending")}
	s = collectSession(rec, `{"trashTypeMatch": true, "quantityMatch": true, "confidence": 0.9}`, nil)
	require.NoError(t, s.Select(photo))
	_, err = s.Start(context.Background())
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
	assert.Equal(t, []string{"ai", "report:report-1"}, rec.Calls())
}

func TestFinishedSessionRequiresReset(t *testing.T) {
	rec := &recorder{}
	s := collectSession(rec, `{"trashTypeMatch": false, "quantityMatch": false, "confidence": 0.2}`, nil)
	require.NoError(t, s.Select(photo))
	_, err := s.Start(context.Background())
	require.NoError(t, err)

	_, err = s.Start(context.Background())
	assert.ErrorIs(t, err, ErrNotReset)
	assert.ErrorIs(t, s.Select(photo), ErrNotReset)

	require.NoError(t, s.Reset())
	assert.Equal(t, Idle, s.Status())
	assert.Nil(t, s.Result())
	_, err = s.Start(context.Background())
	assert.ErrorIs(t, err, apperror.ErrNoImage)
}

func TestConcurrentStartRunsOnce(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	var calls int
	gen := aiclient.GeneratorFunc(func(ctx context.Context, images []imagecodec.Image, prompt string) (string, error) {
		calls++
		close(entered)
		<-release
		return `{"trashIsCollected": true, "confidence": 0.8}`, nil
	})
	s := New(Config{Generator: gen, Mode: extractor.ModeCompare, Prompt: aiclient.ComparePrompt()})
	require.NoError(t, s.SelectPair(photo, photo))

	done := make(chan error, 1)
	go func() {
		_, err := s.Start(context.Background())
		done <- err
	}()
	<-entered

	assert.Equal(t, Verifying, s.Status())
	_, err := s.Start(context.Background())
	assert.ErrorIs(t, err, ErrInProgress)
	assert.ErrorIs(t, s.Reset(), ErrInProgress)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, calls)
	assert.Equal(t, Success, s.Status())
}

func TestSelectPairOrdersBeforeAfter(t *testing.T) {
	before := &imagecodec.Image{Data: []byte("before"), MIMEType: "image/png"}
	var got []imagecodec.Image
	gen := aiclient.GeneratorFunc(func(ctx context.Context, images []imagecodec.Image, prompt string) (string, error) {
		got = images
		return `{"trashIsCollected": false, "confidence": 0.9}`, nil
	})
	s := New(Config{Generator: gen, Mode: extractor.ModeCompare})
	require.NoError(t, s.SelectPair(before, photo))

	_, err := s.Start(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "before", string(got[0].Data))
	assert.Equal(t, "jpeg", string(got[1].Data))

	assert.ErrorIs(t, New(Config{}).SelectPair(before, nil), apperror.ErrNoImage)
}

func TestSelectPairRequiresBeforeImage(t *testing.T) {
	var called bool
	gen := aiclient.GeneratorFunc(func(ctx context.Context, images []imagecodec.Image, prompt string) (string, error) {
		called = true
		return `{"trashIsCollected": true, "confidence": 0.95}`, nil
	})
	s := New(Config{Generator: gen, Mode: extractor.ModeCompare})

	assert.ErrorIs(t, s.SelectPair(nil, photo), apperror.ErrNoImage)
	assert.ErrorIs(t, s.SelectPair(&imagecodec.Image{}, photo), apperror.ErrNoImage)

	_, err := s.Start(context.Background())
	assert.ErrorIs(t, err, apperror.ErrNoImage)
	assert.False(t, called)
}

func TestPolicies(t *testing.T) {
	assert.False(t, CleanupPolicy(nil))
	assert.True(t, CleanupPolicy(&extractor.Result{TrashIsCollected: true, Confidence: 0.71}))
	assert.False(t, CleanupPolicy(&extractor.Result{TrashIsCollected: true, Confidence: 0.7}))
	assert.False(t, CollectMatchPolicy(&extractor.Result{TrashTypeMatch: true, Confidence: 0.9}))
}
