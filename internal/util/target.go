package util

import "strings"

// RedactTarget hides credentials in a connection string so it can be logged:
// "mongodb://user:pw@host/db?tlsCertificateKeyFilePassword=x" ->
// "mongodb://***@host/db?tlsCertificateKeyFilePassword=***".
func RedactTarget(target string) string {
	scheme, rest, ok := strings.Cut(target, "://")
	if !ok {
		return target
	}
	hosts := rest
	if i := strings.IndexAny(rest, "/?"); i >= 0 {
		hosts = rest[:i]
	}
	if at := strings.LastIndex(hosts, "@"); at >= 0 {
		rest = "***" + rest[at:]
	}
	path, query, hasQuery := strings.Cut(rest, "?")
	if !hasQuery {
		return scheme + "://" + rest
	}
	return scheme + "://" + path + "?" + redactQuery(query)
}

// redactQuery masks option values that can carry secrets. Separators
// ("&" or ";") are kept as written.
func redactQuery(q string) string {
	var b strings.Builder
	b.Grow(len(q))
	for q != "" {
		i := strings.IndexAny(q, "&;")
		opt, sep := q, ""
		if i >= 0 {
			opt, sep, q = q[:i], q[i:i+1], q[i+1:]
		} else {
			q = ""
		}
		name, _, hasValue := strings.Cut(opt, "=")
		if hasValue && secretOption(name) {
			opt = name + "=***"
		}
		b.WriteString(opt)
		b.WriteString(sep)
	}
	return b.String()
}

func secretOption(name string) bool {
	n := strings.ToLower(name)
	switch n {
	case "authmechanismproperties", "proxypassword", "proxyusername":
		return true
	}
	return strings.Contains(n, "password") || strings.Contains(n, "secret") || strings.Contains(n, "token")
}
