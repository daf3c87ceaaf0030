package review

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func ratingPtr(v float64) *float64 { return &v }

func TestFilter_RatingBounds(t *testing.T) {
	t.Parallel()

	f := Filter{MinRating: 3, MaxRating: ratingPtr(5)}
	var raws []RawReview
	for i := 1; i <= 5; i++ {
		raws = append(raws, RawReview{Rating: ratingPtr(float64(i)), Body: "solid app"})
	}

	var result ChannelResult
	kept := f.Apply(raws, 0, &result)

	require.Len(t, kept, 3)
	for i, r := range kept {
		require.InDelta(t, float64(i+3), *r.Rating, 0.001)
	}
	require.Equal(t, 2, result.SkippedRating)
	require.Equal(t, 5, result.SeenTotal)
}

func TestFilter_LinkSpamAndEmpty(t *testing.T) {
	t.Parallel()

	f := Filter{}
	raws := []RawReview{
		{Body: "visit https://spam.example now"},
		{Body: "or www.spam.example"},
		{Body: "   ", Title: ""},
		{Title: "Title only"},
	}
	var result ChannelResult
	kept := f.Apply(raws, 0, &result)

	require.Len(t, kept, 1)
	require.Equal(t, "Title only", kept[0].Title)
	require.Equal(t, 2, result.SkippedLinkSpam)
	require.Zero(t, result.SkippedRating)
}

func TestFilter_UnboundedKeepsMissingRating(t *testing.T) {
	t.Parallel()

	require.Equal(t, RejectNone, Filter{}.Evaluate(RawReview{Body: "ok"}))
	require.Equal(t, RejectRating, Filter{MinRating: 1}.Evaluate(RawReview{Body: "ok"}))
}

func TestFilter_ApplyRespectsKeepCap(t *testing.T) {
	t.Parallel()

	raws := []RawReview{{Body: "a"}, {Body: "b"}, {Body: "c"}}
	var result ChannelResult
	kept := Filter{}.Apply(raws, 2, &result)
	require.Len(t, kept, 2)
	require.Equal(t, 2, result.SeenTotal)
}

func TestExtractionRequest_Normalize(t *testing.T) {
	t.Parallel()

	req, dropped, err := ExtractionRequest{
		AppID:     " com.example.app ",
		Limit:     5,
		MinRating: 4,
		MaxRating: ratingPtr(2),
		Country:   "TR",
	}.Normalize()
	require.NoError(t, err)
	require.True(t, dropped)
	require.Nil(t, req.MaxRating)
	require.Equal(t, "com.example.app", req.AppID)
	require.Equal(t, "tr", req.Country)
	require.Equal(t, "en", req.Language)
	require.Equal(t, SortNewest, req.Sort)

	_, _, err = ExtractionRequest{AppID: "x", Limit: 0}.Normalize()
	require.True(t, errors.Is(err, ErrInvalidRequest))

	_, _, err = ExtractionRequest{Limit: 3}.Normalize()
	require.True(t, errors.Is(err, ErrInvalidRequest))

	_, _, err = ExtractionRequest{AppID: "x", Limit: MaxLimit + 1}.Normalize()
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, _, err = ExtractionRequest{AppID: "x", Limit: MaxLimit}.Normalize()
	require.NoError(t, err)
}

func TestListingURL(t *testing.T) {
	t.Parallel()

	raw := ListingURL("", ExtractionRequest{AppID: "com.spotify.music", Language: "en", Country: "US"})
	u, err := url.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, "play.google.com", u.Host)
	require.Equal(t, "com.spotify.music", u.Query().Get("id"))
	require.Equal(t, "en", u.Query().Get("hl"))
	require.Equal(t, "us", u.Query().Get("gl"))
}

func TestParseSort(t *testing.T) {
	t.Parallel()

	s, err := ParseSort("most_relevant")
	require.NoError(t, err)
	require.Equal(t, SortMostRelevant, s)
	s, err = ParseSort("")
	require.NoError(t, err)
	require.Equal(t, SortNewest, s)
	_, err = ParseSort("loudest")
	require.Error(t, err)
	require.Equal(t, "rating", SortRating.String())
}

func TestReview_SignatureAndCompleteness(t *testing.T) {
	t.Parallel()

	a := Review{AuthorToken: "anon_1", Body: "x"}
	b := Review{AuthorToken: "anon_1", Body: "x", Rating: ratingPtr(4)}
	require.Equal(t, a.IdentitySignature(), b.IdentitySignature())
	require.Greater(t, b.Completeness(), a.Completeness())
	require.False(t, Review{AuthorToken: "anon"}.Valid())
}
