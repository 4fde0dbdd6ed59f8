package dispatch_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/spyglassmedia/spyglass/internal/content"
	"github.com/spyglassmedia/spyglass/internal/dispatch"
	"github.com/spyglassmedia/spyglass/internal/domain/download"
	"github.com/spyglassmedia/spyglass/internal/domain/search"
	"github.com/spyglassmedia/spyglass/internal/downloader"
	pkgerrors "github.com/spyglassmedia/spyglass/pkg/errors"
	"github.com/spyglassmedia/spyglass/pkg/logger"
)

// MockBackend is a mock download backend
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) CheckConnection(ctx context.Context) downloader.ConnectionCheck {
	args := m.Called(ctx)
	return args.Get(0).(downloader.ConnectionCheck)
}

func (m *MockBackend) Categories(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockBackend) AddLink(ctx context.Context, url, title, category string) (string, error) {
	args := m.Called(ctx, url, title, category)
	return args.String(0), args.Error(1)
}

func (m *MockBackend) AddContent(ctx context.Context, payload []byte, title, category string) (string, error) {
	args := m.Called(ctx, payload, title, category)
	return args.String(0), args.Error(1)
}

// MockContentAccess is a mock content access service
type MockContentAccess struct {
	mock.Mock
}

func (m *MockContentAccess) GetByID(ctx context.Context, id int64, access download.AccessContext) (*content.Content, error) {
	args := m.Called(ctx, id, access)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*content.Content), args.Error(1)
}

// MockResultRepository is a mock result repository
type MockResultRepository struct {
	mock.Mock
}

func (m *MockResultRepository) FindByID(ctx context.Context, id int64) (*search.IdentifiedResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*search.IdentifiedResult), args.Error(1)
}

// MockAttemptRepository is a mock attempt repository
type MockAttemptRepository struct {
	mock.Mock
}

func (m *MockAttemptRepository) Create(ctx context.Context, attempt *download.Attempt) error {
	args := m.Called(ctx, attempt)
	if args.Error(0) == nil {
		attempt.ID = int64(len(m.Calls))
	}
	return args.Error(0)
}

func (m *MockAttemptRepository) UpdateStatus(ctx context.Context, id int64, status download.AttemptStatus, externalID, errText string) error {
	args := m.Called(ctx, id, status, externalID, errText)
	return args.Error(0)
}

// MockPublisher is a mock event publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishAttempt(ctx context.Context, event dispatch.AttemptEvent) {
	m.Called(ctx, event)
}

type OrchestratorTestSuite struct {
	suite.Suite

	ctx      context.Context
	backend  *MockBackend
	contents *MockContentAccess
	results  *MockResultRepository
	attempts *MockAttemptRepository
	access   download.AccessContext
}

func (suite *OrchestratorTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.backend = new(MockBackend)
	suite.contents = new(MockContentAccess)
	suite.results = new(MockResultRepository)
	suite.attempts = new(MockAttemptRepository)
	suite.access = download.AccessContext{Username: "alice", IP: "10.0.0.1", UserAgent: "spyglass-test"}
}

func (suite *OrchestratorTestSuite) TearDownTest() {
	suite.backend.AssertExpectations(suite.T())
	suite.contents.AssertExpectations(suite.T())
	suite.results.AssertExpectations(suite.T())
	suite.attempts.AssertExpectations(suite.T())
}

func (suite *OrchestratorTestSuite) newOrchestrator(addingType downloader.AddingType, publisher dispatch.EventPublisher) *dispatch.Orchestrator {
	return dispatch.NewOrchestrator(
		suite.backend,
		downloader.Config{Type: "sabnzbd", AddingType: addingType, Timeout: 5 * time.Second},
		suite.contents,
		suite.results,
		suite.attempts,
		publisher,
		logger.NewNop(),
	)
}

func (suite *OrchestratorTestSuite) identifiedResult(id int64) *search.IdentifiedResult {
	return &search.IdentifiedResult{
		ID:          id,
		Indexer:     "nzbking",
		IndexerGuid: "guid",
		Title:       "Some.Title",
		Link:        "http://indexer/get/abc",
		Category:    "tv",
	}
}

func (suite *OrchestratorTestSuite) TestAddBatch_ReferenceMode_AllSucceed() {
	// Arrange
	orchestrator := suite.newOrchestrator(downloader.AddingTypeReference, nil)
	for _, id := range []int64{1, 2} {
		suite.results.On("FindByID", mock.Anything, id).Return(suite.identifiedResult(id), nil).Once()
	}
	suite.backend.On("AddLink", mock.Anything, "http://indexer/get/abc", "Some.Title", "tv").
		Return("SABnzbd_nzo_1", nil).Twice()
	suite.attempts.On("Create", mock.Anything, mock.MatchedBy(func(a *download.Attempt) bool {
		return a.Status == download.StatusSubmittedReference &&
			a.AccessType == download.AccessTypeReference &&
			a.ExternalID == "SABnzbd_nzo_1" &&
			a.Username == "alice"
	})).Return(nil).Twice()

	// Act
	outcome := orchestrator.AddBatch(suite.ctx, []int64{1, 2}, "", suite.access)

	// Assert
	assert.True(suite.T(), outcome.Success)
	assert.Equal(suite.T(), []int64{1, 2}, outcome.AddedIDs)
	assert.Empty(suite.T(), outcome.MissedIDs)
}

func (suite *OrchestratorTestSuite) TestAddBatch_StopsOnFirstFailure() {
	// Arrange: 3 items, the 2nd is rejected. The 3rd would succeed on
	// its own but must never be attempted.
	orchestrator := suite.newOrchestrator(downloader.AddingTypeReference, nil)
	suite.results.On("FindByID", mock.Anything, int64(1)).Return(suite.identifiedResult(1), nil).Once()
	suite.results.On("FindByID", mock.Anything, int64(2)).Return(suite.identifiedResult(2), nil).Once()

	suite.backend.On("AddLink", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("SABnzbd_nzo_1", nil).Once()
	suite.backend.On("AddLink", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", pkgerrors.Rejected("downloader says the submission was not added successfully")).Once()

	suite.attempts.On("Create", mock.Anything, mock.MatchedBy(func(a *download.Attempt) bool {
		return a.Status == download.StatusSubmittedReference
	})).Return(nil).Once()
	suite.attempts.On("Create", mock.Anything, mock.MatchedBy(func(a *download.Attempt) bool {
		return a.Status == download.StatusFailed && a.Error != ""
	})).Return(nil).Once()

	// Act
	outcome := orchestrator.AddBatch(suite.ctx, []int64{1, 2, 3}, "", suite.access)

	// Assert
	assert.False(suite.T(), outcome.Success)
	assert.Equal(suite.T(), []int64{1}, outcome.AddedIDs)
	assert.Equal(suite.T(), []int64{2, 3}, outcome.MissedIDs)
	assert.Contains(suite.T(), outcome.Message, "Error while adding to downloader: ")
	assert.Contains(suite.T(), outcome.Message, "1 were added successfully")
	suite.results.AssertNotCalled(suite.T(), "FindByID", mock.Anything, int64(3))
}

func (suite *OrchestratorTestSuite) TestAddBatch_FirstItemFails_NoSuccessSuffix() {
	// Arrange
	orchestrator := suite.newOrchestrator(downloader.AddingTypeReference, nil)
	suite.results.On("FindByID", mock.Anything, int64(1)).Return(suite.identifiedResult(1), nil).Once()
	suite.backend.On("AddLink", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", pkgerrors.Unreachable("connection refused")).Once()
	suite.attempts.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

	// Act
	outcome := orchestrator.AddBatch(suite.ctx, []int64{1, 2}, "", suite.access)

	// Assert
	assert.False(suite.T(), outcome.Success)
	assert.Empty(suite.T(), outcome.AddedIDs)
	assert.Equal(suite.T(), []int64{1, 2}, outcome.MissedIDs)
	assert.NotContains(suite.T(), outcome.Message, "were added successfully")
}

func (suite *OrchestratorTestSuite) TestAddBatch_UnknownReference_NoAttemptRecorded() {
	// Arrange: the failure happens before any backend call, so there is
	// nothing durable to attach an attempt to.
	orchestrator := suite.newOrchestrator(downloader.AddingTypeReference, nil)
	suite.results.On("FindByID", mock.Anything, int64(1)).
		Return(nil, pkgerrors.NotFound("search result 1 not found")).Once()

	// Act
	outcome := orchestrator.AddBatch(suite.ctx, []int64{1}, "", suite.access)

	// Assert
	assert.False(suite.T(), outcome.Success)
	assert.Equal(suite.T(), []int64{1}, outcome.MissedIDs)
	suite.attempts.AssertNotCalled(suite.T(), "Create", mock.Anything, mock.Anything)
	suite.backend.AssertNotCalled(suite.T(), "AddLink", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *OrchestratorTestSuite) TestAddBatch_CategoryOverrideAppliesToAllItems() {
	// Arrange
	orchestrator := suite.newOrchestrator(downloader.AddingTypeReference, nil)
	suite.results.On("FindByID", mock.Anything, int64(1)).Return(suite.identifiedResult(1), nil).Once()
	suite.backend.On("AddLink", mock.Anything, mock.Anything, mock.Anything, "movies").
		Return("SABnzbd_nzo_1", nil).Once()
	suite.attempts.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

	// Act: the item's own category is "tv" but the override wins.
	outcome := orchestrator.AddBatch(suite.ctx, []int64{1}, "movies", suite.access)

	// Assert
	assert.True(suite.T(), outcome.Success)
}

func (suite *OrchestratorTestSuite) TestAddBatch_PayloadMode_ConfirmsAttempt() {
	// Arrange
	orchestrator := suite.newOrchestrator(downloader.AddingTypePayload, nil)
	payload := []byte("<nzb/>")
	pending := &download.Attempt{ID: 11, ResultID: 1, Status: download.StatusSubmittedPayload}
	suite.contents.On("GetByID", mock.Anything, int64(1), suite.access).Return(&content.Content{
		Payload:  payload,
		Title:    "Some.Title",
		Category: "tv",
		Attempt:  pending,
	}, nil).Once()
	suite.backend.On("AddContent", mock.Anything, payload, "Some.Title", "tv").
		Return("SABnzbd_nzo_9", nil).Once()
	suite.attempts.On("UpdateStatus", mock.Anything, int64(11), download.StatusConfirmed, "SABnzbd_nzo_9", "").
		Return(nil).Once()

	// Act
	outcome := orchestrator.AddBatch(suite.ctx, []int64{1}, "", suite.access)

	// Assert
	assert.True(suite.T(), outcome.Success)
	assert.Equal(suite.T(), []int64{1}, outcome.AddedIDs)
}

func (suite *OrchestratorTestSuite) TestAddBatch_PayloadMode_ConfirmationWriteFailureStillCountsAdded() {
	// Arrange: the backend accepts the upload but persisting the
	// CONFIRMED transition fails. The item reached the queue, so it
	// must still be reported as added.
	orchestrator := suite.newOrchestrator(downloader.AddingTypePayload, nil)
	pending := &download.Attempt{ID: 11, ResultID: 1, Status: download.StatusSubmittedPayload}
	suite.contents.On("GetByID", mock.Anything, int64(1), suite.access).Return(&content.Content{
		Payload: []byte("<nzb/>"),
		Title:   "Some.Title",
		Attempt: pending,
	}, nil).Once()
	suite.backend.On("AddContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("SABnzbd_nzo_9", nil).Once()
	suite.attempts.On("UpdateStatus", mock.Anything, int64(11), download.StatusConfirmed, "SABnzbd_nzo_9", "").
		Return(pkgerrors.Internal("storage unavailable")).Once()

	// Act
	outcome := orchestrator.AddBatch(suite.ctx, []int64{1}, "", suite.access)

	// Assert
	assert.True(suite.T(), outcome.Success)
	assert.Equal(suite.T(), []int64{1}, outcome.AddedIDs)
	assert.Empty(suite.T(), outcome.MissedIDs)
}

func (suite *OrchestratorTestSuite) TestAddBatch_PayloadMode_FailureMarksAttemptFailed() {
	// Arrange
	orchestrator := suite.newOrchestrator(downloader.AddingTypePayload, nil)
	pending := &download.Attempt{ID: 11, ResultID: 1, Status: download.StatusSubmittedPayload}
	suite.contents.On("GetByID", mock.Anything, int64(1), suite.access).Return(&content.Content{
		Payload: []byte("<nzb/>"),
		Title:   "Some.Title",
		Attempt: pending,
	}, nil).Once()
	suite.backend.On("AddContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", pkgerrors.Rejected("downloader says the submission was not added successfully")).Once()
	suite.attempts.On("UpdateStatus", mock.Anything, int64(11), download.StatusFailed, "", mock.MatchedBy(func(errText string) bool {
		return errText != ""
	})).Return(nil).Once()

	// Act
	outcome := orchestrator.AddBatch(suite.ctx, []int64{1}, "", suite.access)

	// Assert
	assert.False(suite.T(), outcome.Success)
	assert.Equal(suite.T(), []int64{1}, outcome.MissedIDs)
}

func (suite *OrchestratorTestSuite) TestAddBatch_CancelledContextStopsBatch() {
	// Arrange
	orchestrator := suite.newOrchestrator(downloader.AddingTypeReference, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Act
	outcome := orchestrator.AddBatch(ctx, []int64{1, 2}, "", suite.access)

	// Assert: nothing was attempted, committed state is untouched.
	assert.False(suite.T(), outcome.Success)
	assert.Empty(suite.T(), outcome.AddedIDs)
	assert.Equal(suite.T(), []int64{1, 2}, outcome.MissedIDs)
}

func (suite *OrchestratorTestSuite) TestAddBatch_PublishesAttemptEvents() {
	// Arrange
	publisher := new(MockPublisher)
	orchestrator := suite.newOrchestrator(downloader.AddingTypeReference, publisher)
	suite.results.On("FindByID", mock.Anything, int64(1)).Return(suite.identifiedResult(1), nil).Once()
	suite.backend.On("AddLink", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("SABnzbd_nzo_1", nil).Once()
	suite.attempts.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
	publisher.On("PublishAttempt", mock.Anything, mock.MatchedBy(func(e dispatch.AttemptEvent) bool {
		return e.ResultID == 1 &&
			e.Status == download.StatusSubmittedReference &&
			e.ExternalID == "SABnzbd_nzo_1" &&
			e.BatchID != ""
	})).Once()

	// Act
	outcome := orchestrator.AddBatch(suite.ctx, []int64{1}, "", suite.access)

	// Assert
	assert.True(suite.T(), outcome.Success)
	publisher.AssertExpectations(suite.T())
}

func (suite *OrchestratorTestSuite) TestCheckBackendAndCategories() {
	// Arrange
	orchestrator := suite.newOrchestrator(downloader.AddingTypeReference, nil)
	suite.backend.On("CheckConnection", mock.Anything).
		Return(downloader.ConnectionCheck{OK: true}).Once()
	suite.backend.On("Categories", mock.Anything).
		Return([]string{"tv", "movies"}, nil).Once()

	// Act & Assert
	check := orchestrator.CheckBackend(suite.ctx)
	assert.True(suite.T(), check.OK)

	categories, err := orchestrator.BackendCategories(suite.ctx)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{"tv", "movies"}, categories)
}

func TestOrchestratorTestSuite(t *testing.T) {
	suite.Run(t, new(OrchestratorTestSuite))
}
