package rewrite

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

const sampleIndex = `<html><head><title>Screeps</title>
<script>var s=document.createElement('script');s.src='https://static.xsolla.com/embed.js';</script>
<script>!function(f){f.fbq=function(){};}(window,'https://connect.facebook.net/en_US/fbevents.js');</script>
<script>window.onRecaptchaLoad=function(){grecaptcha.render('x')};</script>
<script src="app.js"></script>
</head><body><div id="app"></div></body></html>`

func TestRewriteIndexInjectsScriptsAndStubsTrackers(t *testing.T) {
	const key = "index-test"
	if _, ok := FetchHooks(key); !ok {
		MustRegisterHooks(key, Hooks{
			IndexScripts: func(ctx *Context) []Script {
				return []Script{
					{Name: "clientAuth", Args: []Arg{{Name: "backend", Value: ctx.Backend}}},
					{Name: "removeDecorations", Args: []Arg{{Name: "backend", Value: ctx.Backend}}},
				}
			},
		})
	}
	r := New(Options{ModuleKey: key})
	ctx := &Context{Host: "localhost:8080", Backend: "http://localhost:21025"}

	out := r.Rewrite("index.html", sampleIndex, ctx)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(out))
	require.NoError(t, err)
	require.Equal(t, "Screeps", doc.Find("title").Text())

	injected := 0
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		text := s.Text()
		require.NotContains(t, text, "static.xsolla.com")
		require.NotContains(t, text, "connect.facebook.net")
		if strings.Contains(text, `const backend = "http://localhost:21025";`) {
			injected++
		}
	})
	require.Equal(t, 2, injected)
	require.Contains(t, out, "<script>xnt = new Proxy(() => xnt, { get: () => xnt })</script>")
	require.Contains(t, out, "<script>fbq = new Proxy(() => fbq, { get: () => fbq })</script>")
	require.Contains(t, out, "<script>function onRecaptchaLoad(){}</script>")
	require.Contains(t, out, `<script src="app.js"></script>`)
	require.True(t, strings.Index(out, TitleMarker) < strings.Index(out, "const backend"))
}

func TestRewriteIndexWithoutMarkerOnlyStubs(t *testing.T) {
	src := `<html><head><script>twttr.ready()</script></head></html>`
	out := RewriteIndex(src, []string{"<script>x()</script>"})
	require.NotContains(t, out, "x()")
	require.Contains(t, out, "twttr = new Proxy(() => twttr, { get: () => twttr })")
}

func TestRewriteIndexReplacesFirstMarkerOnly(t *testing.T) {
	src := TitleMarker + TitleMarker
	out := RewriteIndex(src, []string{"<script>a</script>", "<script>b</script>"})
	require.Equal(t, TitleMarker+"\n<script>a</script>\n<script>b</script>"+TitleMarker, out)
}
