package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"post_importer/internal/domain"
	"post_importer/internal/service/mocks"
)

const testFeedURL = "https://feed.test/posts.json"

type ImportServiceTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	feed       *mocks.MockFeed
	items      *mocks.MockContentStore
	categories *mocks.MockCategoryStore
	users      *mocks.MockUserStore
	media      *mocks.MockMediaAttacher
	txManager  *mocks.MockTransactionManager
	publisher  *mocks.MockPublisher

	service *ImportService
	logger  *slog.Logger
	now     time.Time
}

func (s *ImportServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.feed = mocks.NewMockFeed(s.ctrl)
	s.items = mocks.NewMockContentStore(s.ctrl)
	s.categories = mocks.NewMockCategoryStore(s.ctrl)
	s.users = mocks.NewMockUserStore(s.ctrl)
	s.media = mocks.NewMockMediaAttacher(s.ctrl)
	s.txManager = mocks.NewMockTransactionManager(s.ctrl)
	s.publisher = mocks.NewMockPublisher(s.ctrl)

	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.now = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	s.feed.EXPECT().Name().Return(testFeedURL).AnyTimes()

	s.service = s.newService(s.publisher)
}

func (s *ImportServiceTestSuite) newService(publisher Publisher) *ImportService {
	svc := NewImportService(
		s.feed,
		s.items,
		s.categories,
		s.users,
		s.media,
		s.txManager,
		publisher,
		s.logger,
	)
	svc.now = func() time.Time { return s.now }
	svc.randInt64N = func(n int64) int64 { return n / 2 }
	return svc
}

func (s *ImportServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestImportServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ImportServiceTestSuite))
}

func (s *ImportServiceTestSuite) expectTransaction() {
	s.txManager.EXPECT().WithTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	)
}

func (s *ImportServiceTestSuite) TestRun_CreatesNewArticle() {
	ctx := context.Background()
	article := domain.RemoteArticle{
		Title:    "A",
		Content:  "<p>body</p>",
		Category: "Tech",
		Rating:   "4",
		SiteLink: "http://x",
	}

	s.feed.EXPECT().FetchArticles(ctx).Return([]domain.RemoteArticle{article}, nil)
	s.items.EXPECT().FindByExactTitle(ctx, "A").Return(nil, nil)
	s.categories.EXPECT().FindByName(ctx, "Tech").Return(nil, nil)
	s.categories.EXPECT().Create(ctx, "Tech").Return(&domain.Category{ID: 7, Name: "Tech"}, nil)
	s.users.EXPECT().FirstAdministrator(ctx).Return(int64(1), nil)
	s.expectTransaction()

	s.items.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, draft *domain.ContentDraft) (int64, error) {
			s.Equal("A", draft.Title)
			s.Equal("<p>body</p>", draft.Body)
			s.Equal(domain.StatusPublished, draft.Status)
			s.Equal(int64(1), draft.AuthorID)
			s.Equal([]int64{7}, draft.CategoryIDs)
			s.False(draft.PublishedAt.Before(s.now.AddDate(0, -1, 0)))
			s.False(draft.PublishedAt.After(s.now))
			return 100, nil
		},
	)
	s.items.EXPECT().SetMeta(ctx, int64(100), map[string]string{
		domain.MetaCustomLink:   "http://x",
		domain.MetaCustomRating: "4",
	}).Return(nil)
	s.categories.EXPECT().LinkToItem(ctx, int64(100), []int64{7}).Return(nil)
	s.publisher.EXPECT().Publish(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, item *domain.ContentItem) error {
			s.Equal(int64(100), item.ID)
			s.Nil(item.ThumbnailMediaID)
			return nil
		},
	)

	report, err := s.service.Run(ctx)

	s.NoError(err)
	s.Equal(testFeedURL, report.Feed)
	s.Equal(1, report.Fetched)
	s.Equal(1, report.Created())
	s.Equal(0, report.Skipped())
	s.Equal(0, report.Failed())
	s.Equal(int64(100), report.Outcomes[0].ItemID)
}

func (s *ImportServiceTestSuite) TestRun_ExistingCategoryIsReused() {
	ctx := context.Background()

	s.feed.EXPECT().FetchArticles(ctx).Return([]domain.RemoteArticle{{Title: "A", Category: "Tech"}}, nil)
	s.items.EXPECT().FindByExactTitle(ctx, "A").Return(nil, nil)
	s.categories.EXPECT().FindByName(ctx, "Tech").Return(&domain.Category{ID: 3, Name: "Tech"}, nil)
	s.users.EXPECT().FirstAdministrator(ctx).Return(int64(1), nil)
	s.expectTransaction()
	s.items.EXPECT().Create(ctx, gomock.Any()).Return(int64(100), nil)
	s.items.EXPECT().SetMeta(ctx, int64(100), gomock.Any()).Return(nil)
	s.categories.EXPECT().LinkToItem(ctx, int64(100), []int64{3}).Return(nil)
	s.publisher.EXPECT().Publish(ctx, gomock.Any()).Return(nil)

	report, err := s.service.Run(ctx)

	s.NoError(err)
	s.Equal(1, report.Created())
}

func (s *ImportServiceTestSuite) TestRun_SkipsExistingTitle() {
	ctx := context.Background()

	s.feed.EXPECT().FetchArticles(ctx).Return([]domain.RemoteArticle{{Title: "A", Category: "Tech"}}, nil)
	s.items.EXPECT().FindByExactTitle(ctx, "A").Return(&domain.ContentItem{ID: 42, Title: "A"}, nil)

	report, err := s.service.Run(ctx)

	s.NoError(err)
	s.Equal(0, report.Created())
	s.Equal(1, report.Skipped())
	s.Equal(domain.OutcomeSkippedDuplicate, report.Outcomes[0].Kind)
	s.Equal(int64(42), report.Outcomes[0].ItemID)
}

func (s *ImportServiceTestSuite) TestRun_RepeatedTitleInFeed() {
	ctx := context.Background()
	articles := []domain.RemoteArticle{
		{Title: "A", Category: "Tech", Rating: "4", SiteLink: "http://x"},
		{Title: "A", Category: "Tech", Rating: "9"},
	}

	s.feed.EXPECT().FetchArticles(ctx).Return(articles, nil)
	gomock.InOrder(
		s.items.EXPECT().FindByExactTitle(ctx, "A").Return(nil, nil),
		s.items.EXPECT().FindByExactTitle(ctx, "A").Return(&domain.ContentItem{ID: 100, Title: "A"}, nil),
	)
	s.categories.EXPECT().FindByName(ctx, "Tech").Return(nil, nil)
	s.categories.EXPECT().Create(ctx, "Tech").Return(&domain.Category{ID: 7, Name: "Tech"}, nil)
	s.users.EXPECT().FirstAdministrator(ctx).Return(int64(1), nil)
	s.expectTransaction()
	s.items.EXPECT().Create(ctx, gomock.Any()).Return(int64(100), nil)
	s.items.EXPECT().SetMeta(ctx, int64(100), map[string]string{
		domain.MetaCustomLink:   "http://x",
		domain.MetaCustomRating: "4",
	}).Return(nil)
	s.categories.EXPECT().LinkToItem(ctx, int64(100), []int64{7}).Return(nil)
	s.publisher.EXPECT().Publish(ctx, gomock.Any()).Return(nil)

	report, err := s.service.Run(ctx)

	s.NoError(err)
	s.Equal(2, report.Fetched)
	s.Equal(1, report.Created())
	s.Equal(1, report.Skipped())
	s.Equal(domain.OutcomeCreated, report.Outcomes[0].Kind)
	s.Equal(domain.OutcomeSkippedDuplicate, report.Outcomes[1].Kind)
}

func (s *ImportServiceTestSuite) TestRun_FeedErrorAbortsRun() {
	ctx := context.Background()

	s.feed.EXPECT().FetchArticles(ctx).Return(nil, errors.New("decode response: unexpected EOF"))

	report, err := s.service.Run(ctx)

	s.Error(err)
	var fetchErr *domain.FeedFetchError
	s.True(errors.As(err, &fetchErr))
	s.Equal(testFeedURL, fetchErr.URL)
	s.True(report.Failure())
	s.Contains(report.FeedError, "decode response")
	s.Empty(report.Outcomes)
}

func (s *ImportServiceTestSuite) TestRun_ContinuesAfterItemFailure() {
	ctx := context.Background()
	articles := []domain.RemoteArticle{
		{Title: "broken"},
		{Title: "fine"},
	}

	s.feed.EXPECT().FetchArticles(ctx).Return(articles, nil)
	s.items.EXPECT().FindByExactTitle(ctx, "broken").Return(nil, nil)
	s.items.EXPECT().FindByExactTitle(ctx, "fine").Return(nil, nil)
	s.users.EXPECT().FirstAdministrator(ctx).Return(int64(1), nil).Times(2)
	s.txManager.EXPECT().WithTransaction(ctx, gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	).Times(2)
	gomock.InOrder(
		s.items.EXPECT().Create(ctx, gomock.Any()).Return(int64(0), errors.New("constraint violation")),
		s.items.EXPECT().Create(ctx, gomock.Any()).Return(int64(101), nil),
	)
	s.items.EXPECT().SetMeta(ctx, int64(101), gomock.Any()).Return(nil)
	s.publisher.EXPECT().Publish(ctx, gomock.Any()).Return(nil)

	report, err := s.service.Run(ctx)

	s.NoError(err)
	s.Equal(1, report.Failed())
	s.Equal(1, report.Created())

	failed := report.Outcomes[0]
	s.Equal(domain.OutcomeFailed, failed.Kind)
	var createErr *domain.ItemCreateError
	s.True(errors.As(failed.Err, &createErr))
	s.Contains(failed.Reason, "constraint violation")
}

func (s *ImportServiceTestSuite) TestRun_NoAdministratorFailsItem() {
	ctx := context.Background()

	s.feed.EXPECT().FetchArticles(ctx).Return([]domain.RemoteArticle{{Title: "A"}}, nil)
	s.items.EXPECT().FindByExactTitle(ctx, "A").Return(nil, nil)
	s.users.EXPECT().FirstAdministrator(ctx).Return(int64(0), domain.ErrNoAdministrator)

	report, err := s.service.Run(ctx)

	s.NoError(err)
	s.Equal(1, report.Failed())
	s.True(errors.Is(report.Outcomes[0].Err, domain.ErrNoAdministrator))
}

func (s *ImportServiceTestSuite) TestRun_LookupErrorFailsItem() {
	ctx := context.Background()

	s.feed.EXPECT().FetchArticles(ctx).Return([]domain.RemoteArticle{{Title: "A"}}, nil)
	s.items.EXPECT().FindByExactTitle(ctx, "A").Return(nil, errors.New("connection reset"))

	report, err := s.service.Run(ctx)

	s.NoError(err)
	s.Equal(1, report.Failed())
	s.Contains(report.Outcomes[0].Reason, "lookup title")
}

func (s *ImportServiceTestSuite) TestRun_ImageFailureIsNonFatal() {
	ctx := context.Background()
	article := domain.RemoteArticle{Title: "A", Image: "http://img/a.png"}

	s.feed.EXPECT().FetchArticles(ctx).Return([]domain.RemoteArticle{article}, nil)
	s.items.EXPECT().FindByExactTitle(ctx, "A").Return(nil, nil)
	s.users.EXPECT().FirstAdministrator(ctx).Return(int64(1), nil)
	s.expectTransaction()
	s.items.EXPECT().Create(ctx, gomock.Any()).Return(int64(100), nil)
	s.items.EXPECT().SetMeta(ctx, int64(100), gomock.Any()).Return(nil)
	s.media.EXPECT().AttachThumbnail(ctx, int64(100), "Image for - A", "http://img/a.png").
		Return(nil, errors.New("download: unexpected status: 404"))
	s.publisher.EXPECT().Publish(ctx, gomock.Any()).Return(nil)

	report, err := s.service.Run(ctx)

	s.NoError(err)
	s.Len(report.Outcomes, 2)
	s.Equal(domain.OutcomeCreated, report.Outcomes[0].Kind)
	s.Equal(domain.OutcomeImageFailed, report.Outcomes[1].Kind)
	s.Equal("A", report.Outcomes[1].Title)

	var attachErr *domain.ImageAttachError
	s.True(errors.As(report.Outcomes[1].Err, &attachErr))
	s.Equal(int64(100), attachErr.ItemID)
}

func (s *ImportServiceTestSuite) TestRun_AttachesThumbnail() {
	ctx := context.Background()
	article := domain.RemoteArticle{Title: "A", Image: "http://img/a.png"}

	s.feed.EXPECT().FetchArticles(ctx).Return([]domain.RemoteArticle{article}, nil)
	s.items.EXPECT().FindByExactTitle(ctx, "A").Return(nil, nil)
	s.users.EXPECT().FirstAdministrator(ctx).Return(int64(1), nil)
	s.expectTransaction()
	s.items.EXPECT().Create(ctx, gomock.Any()).Return(int64(100), nil)
	s.items.EXPECT().SetMeta(ctx, int64(100), gomock.Any()).Return(nil)
	s.media.EXPECT().AttachThumbnail(ctx, int64(100), "Image for - A", "http://img/a.png").
		Return(&domain.MediaAsset{ID: 9, PublicURL: "https://cdn.test/media/9.png"}, nil)
	s.publisher.EXPECT().Publish(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, item *domain.ContentItem) error {
			s.Require().NotNil(item.ThumbnailMediaID)
			s.Equal(int64(9), *item.ThumbnailMediaID)
			s.Equal("https://cdn.test/media/9.png", item.ThumbnailURL)
			return nil
		},
	)

	report, err := s.service.Run(ctx)

	s.NoError(err)
	s.Equal(1, report.Created())
	s.Equal(0, report.Count(domain.OutcomeImageFailed))
}

func (s *ImportServiceTestSuite) TestRun_PublisherErrorDoesNotFailItem() {
	ctx := context.Background()

	s.feed.EXPECT().FetchArticles(ctx).Return([]domain.RemoteArticle{{Title: "A"}}, nil)
	s.items.EXPECT().FindByExactTitle(ctx, "A").Return(nil, nil)
	s.users.EXPECT().FirstAdministrator(ctx).Return(int64(1), nil)
	s.expectTransaction()
	s.items.EXPECT().Create(ctx, gomock.Any()).Return(int64(100), nil)
	s.items.EXPECT().SetMeta(ctx, int64(100), gomock.Any()).Return(nil)
	s.publisher.EXPECT().Publish(ctx, gomock.Any()).Return(errors.New("channel closed"))

	report, err := s.service.Run(ctx)

	s.NoError(err)
	s.Equal(1, report.Created())
	s.Equal(0, report.Failed())
}

func (s *ImportServiceTestSuite) TestRun_PublisherNil() {
	ctx := context.Background()
	service := s.newService(nil)

	s.feed.EXPECT().FetchArticles(ctx).Return([]domain.RemoteArticle{{Title: "A"}}, nil)
	s.items.EXPECT().FindByExactTitle(ctx, "A").Return(nil, nil)
	s.users.EXPECT().FirstAdministrator(ctx).Return(int64(1), nil)
	s.expectTransaction()
	s.items.EXPECT().Create(ctx, gomock.Any()).Return(int64(100), nil)
	s.items.EXPECT().SetMeta(ctx, int64(100), gomock.Any()).Return(nil)

	report, err := service.Run(ctx)

	s.NoError(err)
	s.Equal(1, report.Created())
}

func (s *ImportServiceTestSuite) TestRandomPublishTime_Bounds() {
	from := s.now.AddDate(0, -1, 0)

	s.service.randInt64N = func(n int64) int64 { return 0 }
	s.Equal(from, s.service.randomPublishTime())

	s.service.randInt64N = func(n int64) int64 { return n - 1 }
	s.Equal(s.now, s.service.randomPublishTime())
}
