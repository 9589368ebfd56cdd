package handler

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
)

const redirectSeconds = 5

var unauthorizedPage = template.Must(template.New("unauthorized").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Sign in required</title>
<meta http-equiv="refresh" content="{{.Seconds}};url=/">
</head>
<body>
<main>
<h1>Sign in required</h1>
<p>You need to sign in to view this page.</p>
<p>Redirecting to the home page in <span id="countdown">{{.Seconds}}</span> seconds.</p>
<p><a href="/signin{{if .From}}?from={{.From}}{{end}}">Sign in now</a></p>
</main>
<script>
var left = {{.Seconds}};
var el = document.getElementById("countdown");
setInterval(function () {
  left = Math.max(0, left - 1);
  el.textContent = left;
  if (left === 0) { window.location.href = "/"; }
}, 1000);
</script>
</body>
</html>
`))

// Unauthorized renders the interstitial that page requests without a session land on.
func Unauthorized(c *gin.Context) {
	c.Status(http.StatusUnauthorized)
	c.Header("Content-Type", "text/html; charset=utf-8")
	_ = unauthorizedPage.Execute(c.Writer, struct {
		Seconds int
		From    string
	}{Seconds: redirectSeconds, From: c.Query("from")})
}
