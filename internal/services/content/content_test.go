package content

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unidate/unidate-admin/internal/apperr"
	"github.com/unidate/unidate-admin/internal/baas/baastest"
	"github.com/unidate/unidate-admin/internal/listing"
	"github.com/unidate/unidate-admin/internal/models"
)

var fixedNow = time.Date(2026, 10, 18, 15, 0, 0, 0, time.UTC)

func post(id, status string, created time.Time) models.Post {
	return models.Post{ID: id, AuthorID: "a-" + id, AuthorName: "Author " + id, Content: "post " + id, Status: status, CreatedAt: created}
}

func TestPostFilterIsConjunctionOfDateAndStatus(t *testing.T) {
	posts := []models.Post{
		post("today-reported", models.PostStatusReported, fixedNow.Add(-2*time.Hour)),
		post("today-approved", models.PostStatusApproved, fixedNow.Add(-time.Hour)),
		post("yesterday-reported", models.PostStatusReported, fixedNow.Add(-20*time.Hour)),
		post("old-reported", models.PostStatusReported, fixedNow.AddDate(0, 0, -40)),
		post("today-reported-2", models.PostStatusReported, time.Date(2026, 10, 18, 0, 0, 1, 0, time.UTC)),
	}

	got := listing.Filter(posts, PostFilter{DateFilter: DateToday, ContentFilter: models.PostStatusReported}.Predicate(fixedNow))
	var ids []string
	for _, p := range got {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"today-reported", "today-reported-2"}, ids)

	byDate := listing.Filter(posts, PostFilter{DateFilter: DateToday}.Predicate(fixedNow))
	byStatus := listing.Filter(posts, PostFilter{ContentFilter: models.PostStatusReported}.Predicate(fixedNow))
	assert.Len(t, byDate, 3)
	assert.Len(t, byStatus, 4)

	week := listing.Filter(posts, PostFilter{DateFilter: DateWeek, ContentFilter: models.PostStatusReported}.Predicate(fixedNow))
	assert.Len(t, week, 3)

	all := listing.Filter(posts, PostFilter{DateFilter: DateAll, ContentFilter: "all"}.Predicate(fixedNow))
	assert.Len(t, all, len(posts))
}

func TestListPostsAndModerate(t *testing.T) {
	ctx := context.Background()
	svc := NewService(baastest.New(t))
	svc.now = func() time.Time { return fixedNow }

	rows := []models.Post{
		post("p1", models.PostStatusReported, fixedNow.Add(-time.Hour)),
		post("p2", models.PostStatusApproved, fixedNow.Add(-2*time.Hour)),
	}
	rows[0].ReportCount = 4
	require.NoError(t, svc.client.DB.Create(&rows).Error)

	page, err := svc.ListPosts(ctx, PostFilter{ContentFilter: models.PostStatusReported}, listing.PageParams{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "p1", page.Items[0].ID)

	res, err := svc.ModeratePost(ctx, "p1", ActionApprove, "admin-1")
	require.NoError(t, err)
	assert.True(t, res.Persisted)

	var stored models.Post
	require.NoError(t, svc.client.DB.First(&stored, "id = ?", "p1").Error)
	assert.Equal(t, models.PostStatusApproved, stored.Status)
	assert.Zero(t, stored.ReportCount)
	assert.Equal(t, "admin-1", stored.ModeratedBy)

	_, err = svc.ModeratePost(ctx, "p2", ActionRemove, "admin-1")
	require.NoError(t, err)
	require.NoError(t, svc.client.DB.First(&stored, "id = ?", "p2").Error)
	assert.Equal(t, models.PostStatusRemoved, stored.Status)

	_, err = svc.ModeratePost(ctx, "p2", "burn", "admin-1")
	assert.True(t, apperr.Is(err, apperr.KindInvalid), "got %v", err)
	_, err = svc.ModeratePost(ctx, "missing", ActionFlag, "admin-1")
	assert.True(t, apperr.Is(err, apperr.KindNotFound), "got %v", err)
}

func TestListGroups(t *testing.T) {
	ctx := context.Background()
	svc := NewService(baastest.New(t))
	require.NoError(t, svc.client.DB.Create(&[]models.Group{
		{ID: "g1", Name: "Chess Club", University: "MIT", Category: "hobby", MemberCount: 12},
		{ID: "g2", Name: "Running", University: "MIT", Category: "sport", MemberCount: 40},
		{ID: "g3", Name: "Chess Masters", University: "UCLA", Category: "hobby", MemberCount: 5},
	}).Error)

	page, err := svc.ListGroups(ctx, GroupFilter{Search: "chess", University: "MIT"}, listing.PageParams{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "g1", page.Items[0].ID)

	page, err = svc.ListGroups(ctx, GroupFilter{}, listing.PageParams{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assert.Equal(t, "g2", page.Items[0].ID)
}
