package readability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articlePage = `<html><head>
<title>Budget vote | City Herald</title>
<meta property="og:title" content="Council approves budget">
<meta name="description" content="Plain description">
<meta property="og:description" content="OG description">
<meta name="author" content="Jane Reporter">
<meta property="article:published_time" content="2024-03-01T10:00:00Z">
<meta property="og:site_name" content="City Herald">
<meta name="keywords" content="budget, council">
<meta property="article:tag" content="city">
<meta property="article:tag" content="budget">
<link rel="canonical" href="/news/budget-vote">
</head><body>
<nav><p>Home | News | Sports | Weather | Contact us today</p></nav>
<article>
<h1>Council approves budget</h1>
<span class="byline">By Jane Reporter</span>
<p>The city council approved the annual budget on Tuesday night after hours of debate.</p>
<p>Short.</p>
<h2>Transit</h2>
<h2>What comes next</h2>
<ul><li>Hearings</li></ul>
<div class="social-share"><p>Share this story with your friends and family</p></div>
</article>
<footer><p>Copyright City Herald, all rights reserved worldwide.</p></footer>
</body></html>`

func TestParser_Parse(t *testing.T) {
	art, err := NewParser().Parse(articlePage, "https://herald.example/news/budget-vote")
	require.NoError(t, err)

	assert.Equal(t, "Council approves budget", art.Title)
	assert.Equal(t, "Jane Reporter", art.Byline)
	assert.Equal(t,
		"The city council approved the annual budget on Tuesday night after hours of debate.\n\nTransit\n\nWhat comes next\n\nHearings",
		art.TextContent)
	assert.NotContains(t, art.TextContent, "Share this story")
	assert.NotContains(t, art.TextContent, "Copyright")
	assert.Contains(t, art.Content, "<p>")
}

func TestParser_Parse_BodyFallback(t *testing.T) {
	art, err := NewParser().Parse(`<html><body><div>Just some loose text in a div without paragraphs.</div></body></html>`, "")
	require.NoError(t, err)
	assert.Equal(t, "Just some loose text in a div without paragraphs.", art.TextContent)
}

func TestParser_Parse_Empty(t *testing.T) {
	_, err := NewParser().Parse(`<html><body></body></html>`, "")
	assert.Error(t, err)
}

func TestMetadataScraper_Scrape(t *testing.T) {
	md, err := NewMetadataScraper().Scrape(articlePage, "https://herald.example/news/budget-vote?utm=x")
	require.NoError(t, err)

	assert.Equal(t, "Council approves budget", md.Title)
	assert.Equal(t, "OG description", md.Description)
	assert.Equal(t, "Jane Reporter", md.Author)
	assert.Equal(t, "2024-03-01T10:00:00Z", md.Date)
	assert.Equal(t, "City Herald", md.Publisher)
	assert.Equal(t, "https://herald.example/news/budget-vote", md.URL)
	assert.Equal(t, []string{"budget", "council", "city"}, md.Keywords)
}

func TestMetadataScraper_Fallbacks(t *testing.T) {
	page := `<html><head><title> Plain   Title </title></head><body><time datetime="2023-05-05">May 5</time></body></html>`
	md, err := NewMetadataScraper().Scrape(page, "https://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, "Plain Title", md.Title)
	assert.Equal(t, "2023-05-05", md.Date)
	assert.Empty(t, md.URL)
	assert.Empty(t, md.Keywords)
}
