package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listing-admin-api/internal/draft"
	"listing-admin-api/internal/logger"
	"listing-admin-api/internal/model"
)

func newTestEditor(t *testing.T, f *catalogFixture) *EditorService {
	t.Helper()
	ed := NewEditorService(f.svc, f.svc, EditorConfig{
		SessionTTL:   time.Minute,
		ReapInterval: time.Hour,
		LoadTimeout:  5 * time.Second,
	}, logger.NewNop())
	t.Cleanup(ed.Stop)
	return ed
}

// waitLoaded waits until the session finished loading listingID.
func waitLoaded(t *testing.T, sess *draft.Session, listingID string) draft.State {
	t.Helper()
	require.Eventually(t, func() bool {
		st := sess.State()
		return st.ListingID == listingID && (st.Loader == draft.LoadReady || st.Loader == draft.LoadFailed)
	}, 2*time.Second, 5*time.Millisecond)
	return sess.State()
}

func TestEditorService_CreateFlow(t *testing.T) {
	f := newCatalogFixture(t)
	ed := newTestEditor(t, f)
	ctx := context.Background()

	sid := ed.Open("")
	sess, err := ed.Get(sid)
	require.NoError(t, err)
	assert.Equal(t, draft.ModeCreate, sess.State().Mode)

	for field, value := range map[string]string{
		draft.FieldName:       "Cottage",
		draft.FieldDesc:       "By the lake",
		draft.FieldSalePrice:  "75000",
		draft.FieldSaleStatus: "on_sale",
		draft.FieldLongitude:  "24.5",
		draft.FieldLatitude:   "57.1",
	} {
		require.NoError(t, sess.SetField(field, value))
	}
	_, err = sess.AddFeature("Sauna")
	require.NoError(t, err)
	_, err = sess.AddImages(ctx, []*draft.FileHandle{fileHandle("lake.jpg", []byte("jpeg"))})
	require.NoError(t, err)

	res, err := ed.Submit(ctx, sid)
	require.NoError(t, err)
	assert.True(t, res.Closed)
	assert.Empty(t, res.Errors)
	assert.Zero(t, ed.Count())

	_, err = ed.Get(sid)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	l, err := f.svc.GetListing(ctx, res.ListingID)
	require.NoError(t, err)
	assert.Equal(t, "Cottage", l.Name)
	assert.Equal(t, 75000.0, l.SalePrice)
	assert.Equal(t, []string{"Sauna"}, l.Features)
	require.Len(t, l.Images, 1)
	assert.Equal(t, "lake.jpg", l.Images[0].FileName)
}

func TestEditorService_SubmitInvalidKeepsSession(t *testing.T) {
	f := newCatalogFixture(t)
	ed := newTestEditor(t, f)

	sid := ed.Open("")
	res, err := ed.Submit(context.Background(), sid)
	require.NoError(t, err)
	assert.False(t, res.Closed)
	assert.True(t, res.ScrollToForm)
	assert.Equal(t, draft.BannerMessage, res.Errors[draft.FieldMessage])
	assert.Equal(t, 1, ed.Count())
}

func TestEditorService_EditFlow(t *testing.T) {
	f := newCatalogFixture(t)
	ed := newTestEditor(t, f)
	ctx := context.Background()
	f.seed(t, "l-1", "Balcony", "Lift")

	sid := ed.Open("l-1")
	sess, err := ed.Get(sid)
	require.NoError(t, err)

	st := waitLoaded(t, sess, "l-1")
	require.Equal(t, draft.LoadReady, st.Loader)
	assert.Equal(t, draft.ModeEdit, st.Mode)
	assert.Equal(t, "House l-1", st.Draft.Name)

	removed, err := sess.RemoveFeature("Lift", 1)
	require.NoError(t, err)
	assert.True(t, removed)
	_, err = sess.AddFeature("Garden")
	require.NoError(t, err)
	require.NoError(t, sess.SetField(draft.FieldSaleStatus, "sold"))

	res, err := ed.Submit(ctx, sid)
	require.NoError(t, err)
	assert.True(t, res.Closed)
	assert.Equal(t, "l-1", res.ListingID)

	l, err := f.svc.GetListing(ctx, "l-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Balcony", "Garden"}, l.Features)
	assert.Equal(t, model.SaleStatusSold, l.SaleStatus)
	assert.Len(t, l.Images, 2)
}

func TestEditorService_OpenMissingListing(t *testing.T) {
	f := newCatalogFixture(t)
	ed := newTestEditor(t, f)

	sess, err := ed.Get(ed.Open("missing"))
	require.NoError(t, err)

	st := waitLoaded(t, sess, "missing")
	assert.Equal(t, draft.LoadFailed, st.Loader)
	assert.Equal(t, "Listing not found", st.LoadError)
}

func TestEditorService_Retarget(t *testing.T) {
	f := newCatalogFixture(t)
	ed := newTestEditor(t, f)
	f.seed(t, "l-1")
	f.seed(t, "l-2")

	sid := ed.Open("l-1")
	sess, err := ed.Get(sid)
	require.NoError(t, err)
	waitLoaded(t, sess, "l-1")

	require.NoError(t, ed.Retarget(sid, "l-2"))
	st := waitLoaded(t, sess, "l-2")
	assert.Equal(t, "House l-2", st.Draft.Name)

	require.NoError(t, ed.Retarget(sid, ""))
	st = sess.State()
	assert.Equal(t, draft.ModeCreate, st.Mode)
	assert.Empty(t, st.Draft.Name)

	assert.ErrorIs(t, ed.Retarget("nope", "l-1"), ErrSessionNotFound)
}

func TestEditorService_Close(t *testing.T) {
	f := newCatalogFixture(t)
	ed := newTestEditor(t, f)

	sid := ed.Open("")
	sess, err := ed.Get(sid)
	require.NoError(t, err)

	require.NoError(t, ed.Close(sid))
	assert.True(t, sess.Closed())
	assert.Zero(t, ed.Count())
	assert.ErrorIs(t, ed.Close(sid), ErrSessionNotFound)
}

func TestEditorService_Reap(t *testing.T) {
	f := newCatalogFixture(t)
	ed := newTestEditor(t, f)

	first, err := ed.Get(ed.Open(""))
	require.NoError(t, err)
	second, err := ed.Get(ed.Open(""))
	require.NoError(t, err)

	assert.Zero(t, ed.Reap())
	assert.Equal(t, 2, ed.Count())

	ed.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	assert.Equal(t, 2, ed.Reap())
	assert.True(t, first.Closed())
	assert.True(t, second.Closed())
	assert.Zero(t, ed.Count())
}

func TestEditorService_StartStop(t *testing.T) {
	f := newCatalogFixture(t)
	ed := NewEditorService(f.svc, f.svc, EditorConfig{SessionTTL: time.Nanosecond, ReapInterval: 10 * time.Millisecond}, logger.NewNop())

	ed.Open("")
	ed.Start()
	ed.Start()
	require.Eventually(t, func() bool { return ed.Count() == 0 }, time.Second, 5*time.Millisecond)
	ed.Stop()
	ed.Stop()
}
