package notify

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

type template struct {
	Subject string
	Text    string
	HTML    string
}

var verificationTemplate = template{
	Subject: "Verify your {brand} account",
	Text: "Welcome to {brand}!\n\n" +
		"Confirm your email address by opening this link:\n{link}\n\n" +
		"If the link does not open, use: {apiLink}\n\n" +
		"The link expires in {hours} hour(s). If you did not sign up, ignore this email.",
	HTML: "<p>Welcome to {brand}!</p>" +
		"<p>Confirm your email address to finish setting up your account.</p>" +
		"<p><a href=\"{link}\">Verify email</a></p>" +
		"<p>If the button does not work, open <a href=\"{apiLink}\">this link</a>.</p>" +
		"<p>The link expires in {hours} hour(s). If you did not sign up, ignore this email.</p>",
}

var twoFactorTemplate = template{
	Subject: "Your {brand} sign-in code",
	Text:    "Your sign-in code is {code}. It is valid for {minutes} minutes.\nIf you did not try to sign in, change your password.",
	HTML: "<p>Use the code below to finish signing in to {brand}.</p>" +
		"<p><strong>{code}</strong></p>" +
		"<p>The code expires in {minutes} minutes.</p>" +
		"<p>If you did not try to sign in, change your password.</p>",
}

func (t template) render(to string, vars map[string]string) Message {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	r := strings.NewReplacer(pairs...)
	return Message{
		To:      to,
		Subject: r.Replace(t.Subject),
		Text:    r.Replace(t.Text),
		HTML:    r.Replace(t.HTML),
	}
}

func verificationLinks(frontendURL, apiURL, token string) (string, string) {
	q := url.QueryEscape(token)
	link := strings.TrimRight(frontendURL, "/") + "/v1/verify-email?token=" + q
	apiLink := strings.TrimRight(apiURL, "/") + "/api/v1/auth/verify-email?token=" + q
	return link, apiLink
}

func wholeUnits(d, unit time.Duration) string {
	n := int64(d / unit)
	if n < 1 {
		n = 1
	}
	return strconv.FormatInt(n, 10)
}
