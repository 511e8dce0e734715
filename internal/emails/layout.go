package emails

import (
	"fmt"
	"strings"
	"time"
)

// Theme matches the Express templates in utils/sendEmail.js.
const (
	themePrimary   = "#10b981"
	themeTextMain  = "#333333"
	themeTextMuted = "#666666"
	themeBgContent = "#f9fafb"
)

// EmailLayout wraps content in the shared HTML frame (header, content card,
// footer) used by every Campus Recycle email.
func EmailLayout(heading, contentHTML string) string {
	year := time.Now().Year()
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; color: %s; }
    .container { max-width: 600px; margin: 0 auto; padding: 20px; }
    .header { background: %s; color: white; padding: 20px; text-align: center; }
    .content { padding: 30px; background: %s; }
    .code { font-size: 32px; font-weight: bold; color: %s; text-align: center; letter-spacing: 5px; padding: 20px; background: white; border-radius: 8px; margin: 20px 0; }
    .button { display: inline-block; background: %s; color: white !important; padding: 12px 30px; text-decoration: none; border-radius: 6px; margin: 20px 0; }
    .footer { text-align: center; padding: 20px; color: %s; font-size: 12px; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>%s</h1>
    </div>
    <div class="content">%s</div>
    <div class="footer">
      <p>&copy; %d Campus Recycle. All rights reserved.</p>
    </div>
  </div>
</body>
</html>`, themeTextMain, themePrimary, themeBgContent, themePrimary, themePrimary, themeTextMuted,
		EscapeHTML(heading), contentHTML, year)
}

// EscapeHTML escapes user-supplied text interpolated into templates.
func EscapeHTML(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#39;",
	)
	return r.Replace(s)
}
