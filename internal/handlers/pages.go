package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"
)

// Home renders the landing page.
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "home.html", nil)
}

// About renders the about page.
func (h *Handlers) About(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "about.html", nil)
}

// ContactForm renders the contact form.
func (h *Handlers) ContactForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "contact.html", nil)
}

// Contact acknowledges a contact message. Messages are not stored.
func (h *Handlers) Contact(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.flash(w, flashDanger, "Invalid form submission")
		http.Redirect(w, r, "/contact", http.StatusFound)
		return
	}

	message := strings.TrimSpace(r.FormValue("message"))
	if message == "" {
		h.flash(w, flashDanger, "Please write a message.")
		http.Redirect(w, r, "/contact", http.StatusFound)
		return
	}

	h.logger.InfoContext(r.Context(), "contact message received",
		slog.String("email", strings.TrimSpace(r.FormValue("email"))),
		slog.Int("length", utf8.RuneCountInString(message)))
	h.flash(w, flashSuccess, "Your message has been sent successfully!")
	http.Redirect(w, r, "/contact", http.StatusFound)
}

// Profile shows the signed-in identity.
func (h *Handlers) Profile(w http.ResponseWriter, r *http.Request) {
	id, _ := GetIdentityFromContext(r)
	h.render(w, r, "profile.html", id)
}
