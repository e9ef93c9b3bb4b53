package profile

// Builtin profiles for common target temperaments, addressable by name in
// the targets list so small campaigns need no profile document.
var builtin = map[string]*Profile{
	// A by-the-book HTTP/1.1 server: persistent, strict about Host,
	// rejects unknown methods and odd method bytes.
	"strict": {
		Name:                 "strict",
		SupportsPersistence:  true,
		RequiresLengthInPOST: true,
		MethodAllowlist:      []string{"GET", "HEAD", "POST", "PUT", "DELETE", "OPTIONS", "TRACE", "PATCH"},
		ForbiddenMethodChars: []byte{' ', '\t', '\r', '\n', 0x00},
	},

	// A legacy-tolerant server: accepts 0.9, missing Host, anything that
	// vaguely resembles a request line.
	"lenient": {
		Name:                "lenient",
		SupportsPersistence: true,
		AllowsHTTP09:        true,
		AllowsMissingHost:   true,
	},

	// A fronting proxy that stamps tracing headers onto every request and
	// reports some names under its own convention.
	"stamping-proxy": {
		Name:           "stamping-proxy",
		AddedHeaders:   []string{"X-Forwarded-For", "X-Request-Id"},
		RemovedHeaders: []string{"Connection", "Keep-Alive"},
		HeaderNameTranslation: map[string]string{
			"X-Real-Ip": "X-Forwarded-For",
		},
		SupportsPersistence: true,
		AllowsMissingHost:   true,
	},

	// A one-shot CGI-style server that closes after the first exchange.
	"oneshot": {
		Name:              "oneshot",
		AllowsMissingHost: true,
	},
}

// Builtin returns the builtin profile registered under name, or nil.
// The returned profile is shared; callers must not modify it.
func Builtin(name string) *Profile {
	return builtin[name]
}

// BuiltinNames lists the available builtin profile names.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	return names
}
