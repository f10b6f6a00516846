package session

import "github.com/ErlanBelekov/taskboard/internal/domain"

const (
	CookieName       = "tb_session"
	RememberCookie   = "remember_me"
	RememberMaxAge   = 30 * 24 * 60 * 60
	LoginPath        = "/login"
	UnauthorizedPath = "/unauthorized"
)

// Cookie is an instruction for the transport layer. MaxAge < 0 clears it.
type Cookie struct {
	Name     string
	Value    string
	MaxAge   int
	HTTPOnly bool
	Path     string
}

// Context carries everything the auth core needs to know about one request
// and everything it wants the transport to do in response. It is built when
// the request arrives and dropped after the response is written.
type Context struct {
	// Incoming cookie values, empty when absent.
	SessionToken string
	RememberMe   string

	Session *domain.Session

	cookies  []Cookie
	redirect string
}

func NewContext(sessionToken, rememberMe string) *Context {
	return &Context{SessionToken: sessionToken, RememberMe: rememberMe}
}

func (c *Context) Identity() (domain.Identity, bool) {
	if c.Session == nil {
		return domain.Identity{}, false
	}
	return c.Session.Identity, true
}

func (c *Context) SetCookie(name, value string, maxAge int) {
	c.cookies = append(c.cookies, Cookie{Name: name, Value: value, MaxAge: maxAge, HTTPOnly: true, Path: "/"})
}

func (c *Context) ClearCookie(name string) {
	c.SetCookie(name, "", -1)
}

// Cookies returns the instructions not yet taken.
func (c *Context) Cookies() []Cookie {
	return c.cookies
}

// TakeCookies returns the pending instructions and forgets them, so a
// transport that writes headers more than once never repeats a cookie.
func (c *Context) TakeCookies() []Cookie {
	out := c.cookies
	c.cookies = nil
	return out
}

func (c *Context) RedirectTo(path string) {
	c.redirect = path
}

// Redirect returns the last redirect target set, or "".
func (c *Context) Redirect() string {
	return c.redirect
}
