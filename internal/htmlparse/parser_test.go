package htmlparse

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/realtime-review-crawler/internal/review"
)

const modalFixture = `<html><body>
<div aria-modal="true" role="dialog">
 <div class="fysCi">
  <div class="RHo1pe">
   <header class="c1bOId" data-review-id="r1">
    <div class="YNR7H"><div class="X5PpBb">Jane Doe</div></div>
    <div class="iXRFPc" role="img" aria-label="Rated 4 stars out of five stars"></div>
    <span class="bp9Aid">March 3, 2024</span>
   </header>
   <div class="h3YV2d">Love the new update.   Syncs fast. Read more</div>
   <div class="AJTPZc">12 people found this review helpful</div>
  </div>
  <div class="RHo1pe">
   <header data-review-id="r2">
    <div class="X5PpBb">Sam</div>
    <div role="img" aria-label="Rated 1 star out of five stars"></div>
    <span class="bp9Aid">February 9, 2024</span>
   </header>
   <div class="h3YV2d">Keeps crashing. Version 3.1.0 broke login.</div>
  </div>
  <div class="RHo1pe">
   <header data-review-id="r1"><div class="X5PpBb">Jane Doe</div></header>
   <div class="h3YV2d">Love the new update.</div>
  </div>
 </div>
</div>
</body></html>`

const headerFixture = `<div data-g-id="reviews">
  <div class="EGFGHd">
    <header data-review-id="h1"><span class="X43Kjb">Ana</span><div aria-label="5 stars"></div><time>May 1, 2024</time></header>
    <div class="Jtu6Td">Absolutely essential for commuting.</div>
  </div>
</div>`

const structuralFixture = `<section>
 <div class="wrap">
  <div class="card"><div aria-label="5 stars"></div><time>June 1, 2024</time><div>This app changed my morning routine entirely.</div></div>
  <div class="card"><div aria-label="2 stars"></div><time>June 2, 2024</time><div>Too many interruptions after the redesign.</div></div>
 </div>
</section>`

const flattenedFixture = `<div class="RHo1pe"><span>Kim</span> more_vert March 5, 2024 Works great offline 3 people found this review helpful</div>`

func newParser() *Parser { return New(zap.NewNop()) }

func TestParse_ModalContainers(t *testing.T) {
	t.Parallel()

	got := newParser().Parse(modalFixture, 50)
	require.Len(t, got, 2, "duplicate data-review-id must collapse")

	first := got[0]
	require.Equal(t, "r1", first.NodeID)
	require.Equal(t, "Jane Doe", first.Author)
	require.NotNil(t, first.Rating)
	require.InDelta(t, 4.0, *first.Rating, 0.001)
	require.Equal(t, "March 3, 2024", first.PostedAt)
	require.NotNil(t, first.HelpfulCount)
	require.Equal(t, 12, *first.HelpfulCount)
	require.Equal(t, "Love the new update. Syncs fast.", first.Body)
	require.Nil(t, first.AppVersion)

	second := got[1]
	require.Equal(t, "Sam", second.Author)
	require.InDelta(t, 1.0, *second.Rating, 0.001)
	require.NotNil(t, second.AppVersion)
	require.Equal(t, "3.1.0", *second.AppVersion)
	require.Nil(t, second.HelpfulCount)
}

func TestParse_RespectsLimit(t *testing.T) {
	t.Parallel()

	got := newParser().Parse(modalFixture, 1)
	require.Len(t, got, 1)
	require.Equal(t, "r1", got[0].NodeID)
}

func TestParse_HeaderNormalizedToContainer(t *testing.T) {
	t.Parallel()

	got := newParser().Parse(headerFixture, 10)
	require.Len(t, got, 1)
	require.Equal(t, "h1", got[0].NodeID)
	require.Equal(t, "Ana", got[0].Author)
	require.Equal(t, "May 1, 2024", got[0].PostedAt)
	require.InDelta(t, 5.0, *got[0].Rating, 0.001)
	require.Equal(t, "Absolutely essential for commuting.", got[0].Body)
}

func TestParse_StructuralHeuristicKeepsInnermost(t *testing.T) {
	t.Parallel()

	got := newParser().Parse(structuralFixture, 10)
	require.Len(t, got, 2)
	require.Equal(t, "This app changed my morning routine entirely.", got[0].Body)
	require.Equal(t, "June 1, 2024", got[0].PostedAt)
	require.InDelta(t, 5.0, *got[0].Rating, 0.001)
	require.Equal(t, "Too many interruptions after the redesign.", got[1].Body)
	require.Empty(t, got[1].NodeID)
}

func TestParse_FlattenedTextFallbacks(t *testing.T) {
	t.Parallel()

	got := newParser().Parse(flattenedFixture, 10)
	require.Len(t, got, 1)
	require.Equal(t, "Kim", got[0].Author)
	require.Equal(t, "March 5, 2024", got[0].PostedAt)
	require.Equal(t, "Works great offline", got[0].Body)
	require.NotNil(t, got[0].HelpfulCount)
	require.Equal(t, 3, *got[0].HelpfulCount)
	require.Nil(t, got[0].Rating)
}

func TestParse_DropsContainersWithoutText(t *testing.T) {
	t.Parallel()

	markup := `<div class="RHo1pe"><button>Read more</button></div>` +
		`<div class="RHo1pe"><div class="h3YV2d">Solid.</div></div>`
	got := newParser().Parse(markup, 10)
	require.Len(t, got, 1)
	require.Equal(t, "Solid.", got[0].Body)
}

func TestParse_CommaDecimalRating(t *testing.T) {
	t.Parallel()

	markup := `<div class="RHo1pe"><div role="img" aria-label="Bewertung: 4,5 Sterne"></div><div class="h3YV2d">Gut</div></div>`
	got := newParser().Parse(markup, 10)
	require.Len(t, got, 1)
	require.InDelta(t, 4.5, *got[0].Rating, 0.001)
}

func TestParse_UnusableMarkup(t *testing.T) {
	t.Parallel()

	p := newParser()
	require.Empty(t, p.Parse("", 10))
	require.Empty(t, p.Parse("<html><body><p>No reviews yet</p></body></html>", 10))
}

func TestParse_ConcurrentCallsAgree(t *testing.T) {
	t.Parallel()

	p := newParser()
	want := p.Parse(modalFixture, 50)

	const workers = 8
	results := make([][]review.RawReview, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = p.Parse(modalFixture, 50)
		}(i)
	}
	wg.Wait()
	for _, got := range results {
		require.Equal(t, want, got)
	}
}
