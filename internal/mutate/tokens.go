package mutate

// ambiguityTokens are byte fragments with a track record of splitting
// HTTP/1.1 implementations: framing header variants, chunk trickery, odd
// whitespace and version edge cases. The reward table learns which of them
// pay off against the configured target set.
var ambiguityTokens = []string{
	// Framing conflicts.
	"Transfer-Encoding: chunked\r\n",
	"Transfer-Encoding: chunked, identity\r\n",
	"Transfer-Encoding:\tchunked\r\n",
	"Transfer-Encoding : chunked\r\n",
	"transfer-encoding: ChUnKeD\r\n",
	"Transfer_Encoding: chunked\r\n",
	"Content-Length: 0\r\n",
	"Content-Length: 00\r\n",
	"Content-Length: +1\r\n",
	"Content-Length: 1, 1\r\n",
	"Content-Length: 1\r\nContent-Length: 2\r\n",

	// Chunk bodies and terminators.
	"0\r\n\r\n",
	"0;ext=1\r\n\r\n",
	"5\r\n01234\r\n0\r\n\r\n",
	"5 \r\n01234\r\n0\r\n\r\n",
	"ffffffff\r\n",

	// Line-ending and whitespace abuse.
	"\rGET / HTTP/1.1\r\n",
	"\nGET / HTTP/1.1\r\n",
	" GET / HTTP/1.1\r\n",
	"GET / HTTP/1.1\r\n\r\nGET /second HTTP/1.1\r\n",
	"GET\t/\tHTTP/1.1\r\n",

	// Version and method oddities.
	"GET /\r\n",
	"GET / HTTP/1.2\r\n",
	"GET / HTTP/01.1\r\n",
	"G\x00ET / HTTP/1.1\r\n",

	// Host games.
	"Host: \r\n",
	"Host: a\r\nHost: b\r\n",

	// Header injection probes.
	"X-Injected: 1\r\n\tcontinued\r\n",
	"X-Bare-CR: 1\r",
	"Expect: 100-continue\r\n",
	"Connection: keep-alive, close\r\n",
}
