package app

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/meridianlaw/intake/internal/cases"
	"github.com/meridianlaw/intake/internal/sec"
	"github.com/meridianlaw/intake/internal/storage"
	"github.com/meridianlaw/intake/internal/storage/db"
)

type handler struct {
	logger   *slog.Logger
	store    storage.Store
	sessions *sec.Sessions
	resolver *sec.Resolver

	about template.HTML
	faq   template.HTML
}

func newHandler(
	logger *slog.Logger,
	store storage.Store,
	sessions *sec.Sessions,
	resolver *sec.Resolver,
) (handler, error) {
	about, err := renderPage("about")
	if err != nil {
		return handler{}, err
	}
	faq, err := renderPage("faq")
	if err != nil {
		return handler{}, err
	}
	return handler{
		logger:   logger,
		store:    store,
		sessions: sessions,
		resolver: resolver,
		about:    about,
		faq:      faq,
	}, nil
}

func (h handler) register(e *echo.Echo) {
	e.GET("/", h.index)
	e.GET("/index", h.index)
	e.GET("/about", h.aboutPage)
	e.GET("/faq", h.faqPage)

	e.GET("/login", h.loginPage)
	e.POST("/login", h.login)
	e.GET("/logout", h.logout)
	e.GET("/create-login", h.createLoginPage)
	e.POST("/create-login", h.createLogin)
	e.GET("/register", h.registerPage)
	e.POST("/register", h.registerUser)

	e.GET("/submit", h.submitPage)
	e.POST("/submit", h.submit)
	e.GET("/review", h.review)
	e.POST("/update-case", h.updateCase)

	e.GET("/users", h.users)
	e.POST("/deleteUser/:id", h.deleteUser)
}

// View data types.

type loginData struct {
	ErrorMessage   string
	SuccessMessage string
	UsernameValue  string
}

type accountFormData struct {
	ErrorMessage string
	Form         sec.Registration
}

type submitForm struct {
	Title            string
	Description      string
	PracticeArea     string
	PreferredContact string
}

type submitData struct {
	ErrorMessage   string
	SuccessMessage string
	Form           submitForm
	PracticeAreas  []string
	ContactMethods []string
}

type reviewData struct {
	Cases []db.CaseSummary
}

type usersData struct {
	Users        []db.User
	ErrorMessage string
}

type pageData struct {
	Content template.HTML
}

// Informational pages.

func (h handler) index(c echo.Context) error {
	return c.Render(http.StatusOK, "index", nil)
}

func (h handler) aboutPage(c echo.Context) error {
	return c.Render(http.StatusOK, "page", pageData{Content: h.about})
}

func (h handler) faqPage(c echo.Context) error {
	return c.Render(http.StatusOK, "page", pageData{Content: h.faq})
}

// Authentication.

func (h handler) loginPage(c echo.Context) error {
	var success string
	if sess, ok := currentSession(c); ok {
		success = h.sessions.PopFlash(sess.Token)
	}
	return c.Render(http.StatusOK, "login", loginData{SuccessMessage: success})
}

func (h handler) login(c echo.Context) error {
	username := strings.TrimSpace(c.FormValue("username"))
	password := c.FormValue("password")

	if username == "" || password == "" {
		return c.Render(http.StatusOK, "login", loginData{
			ErrorMessage:  "Username and password are required",
			UsernameValue: username,
		})
	}

	user, ok := h.resolver.Login(c.Request().Context(), username, password)
	if !ok {
		// Deliberately identical for unknown identifier and wrong
		// password.
		return c.Render(http.StatusOK, "login", loginData{
			ErrorMessage:  "Invalid login",
			UsernameValue: username,
		})
	}

	sess, err := h.beginSession(c)
	if err != nil {
		h.logger.ErrorContext(c.Request().Context(), "failed to create session", slog.Any("error", err))
		return c.Render(http.StatusOK, "login", loginData{
			ErrorMessage:  "Login failed. Please try again.",
			UsernameValue: username,
		})
	}
	h.sessions.MarkLoggedIn(sess.Token, user.ID, user.Email)
	return c.Redirect(http.StatusSeeOther, "/")
}

func (h handler) logout(c echo.Context) error {
	if sess, ok := currentSession(c); ok {
		h.sessions.Destroy(sess.Token)
	}
	clearSessionCookie(c)
	return c.Redirect(http.StatusSeeOther, "/")
}

func (h handler) createLoginPage(c echo.Context) error {
	return c.Render(http.StatusOK, "create-login", accountFormData{})
}

func (h handler) createLogin(c echo.Context) error {
	form := sec.Registration{
		Email:     strings.TrimSpace(c.FormValue("email")),
		FirstName: strings.TrimSpace(c.FormValue("first_name")),
		LastName:  strings.TrimSpace(c.FormValue("last_name")),
		Phone:     strings.TrimSpace(c.FormValue("phone")),
	}
	password := c.FormValue("password")
	confirm := c.FormValue("confirm_password")

	renderError := func(message string) error {
		return c.Render(http.StatusOK, "create-login", accountFormData{
			ErrorMessage: message,
			Form:         form,
		})
	}

	if form.Email == "" || form.FirstName == "" || form.LastName == "" ||
		form.Phone == "" || password == "" || confirm == "" {
		return renderError("All fields are required.")
	}
	if password != confirm {
		return renderError("Passwords do not match.")
	}

	form.Password = password
	_, err := h.resolver.Register(c.Request().Context(), form)
	switch {
	case errors.Is(err, storage.ErrAlreadyExists):
		return renderError("An account with the provided email already exists.")
	case errors.Is(err, storage.ErrInvalidEmail):
		return renderError("Please provide a valid email address.")
	case err != nil:
		h.logger.ErrorContext(c.Request().Context(), "account creation failed", slog.Any("error", err))
		return renderError("Unable to create an account right now. Please try again.")
	}

	if sess, err := h.beginSession(c); err == nil {
		h.sessions.SetFlash(sess.Token, "Account created successfully. Please log in.")
	}
	return c.Redirect(http.StatusSeeOther, "/login")
}

func (h handler) registerPage(c echo.Context) error {
	return c.Render(http.StatusOK, "register", accountFormData{})
}

func (h handler) registerUser(c echo.Context) error {
	form := sec.Registration{
		Email:     strings.TrimSpace(c.FormValue("email")),
		FirstName: strings.TrimSpace(c.FormValue("first_name")),
		LastName:  strings.TrimSpace(c.FormValue("last_name")),
		Phone:     strings.TrimSpace(c.FormValue("phone")),
		Password:  c.FormValue("password"),
	}

	renderError := func(message string) error {
		return c.Render(http.StatusOK, "register", accountFormData{
			ErrorMessage: message,
			Form:         form,
		})
	}

	if form.Email == "" || form.Password == "" {
		return renderError("Email and password are required.")
	}

	_, err := h.resolver.Register(c.Request().Context(), form)
	switch {
	case errors.Is(err, storage.ErrAlreadyExists):
		return renderError("Email already registered.")
	case errors.Is(err, storage.ErrInvalidEmail):
		return renderError("Please provide a valid email address.")
	case err != nil:
		h.logger.ErrorContext(c.Request().Context(), "registration failed", slog.Any("error", err))
		return renderError("Registration failed. Please try again.")
	}
	return c.Redirect(http.StatusSeeOther, "/login")
}

// Case intake.

func (h handler) submitPage(c echo.Context) error {
	return c.Render(http.StatusOK, "submit", h.submitData(submitForm{}, "", ""))
}

func (h handler) submitData(form submitForm, errMsg, successMsg string) submitData {
	return submitData{
		ErrorMessage:   errMsg,
		SuccessMessage: successMsg,
		Form:           form,
		PracticeAreas:  cases.PracticeAreaNames(),
		ContactMethods: cases.ContactMethods,
	}
}

func (h handler) submit(c echo.Context) error {
	form := submitForm{
		Title:            strings.TrimSpace(c.FormValue("title")),
		Description:      strings.TrimSpace(c.FormValue("description")),
		PracticeArea:     c.FormValue("practice-area"),
		PreferredContact: c.FormValue("preferred-contact"),
	}

	if form.Title == "" || form.Description == "" || form.PracticeArea == "" || form.PreferredContact == "" {
		return c.Render(http.StatusOK, "submit", h.submitData(form, "All fields are required.", ""))
	}

	practiceAreaID, ok := cases.PracticeAreas[form.PracticeArea]
	if !ok {
		return c.Render(http.StatusOK, "submit", h.submitData(form, "Invalid practice area selected.", ""))
	}
	if !cases.ValidContactMethod(form.PreferredContact) {
		return c.Render(http.StatusOK, "submit", h.submitData(form, "Invalid contact method selected.", ""))
	}

	sess, ok := currentSession(c)
	if !ok || !sess.LoggedIn {
		return c.Render(http.StatusOK, "submit",
			h.submitData(form, "You must be logged in to submit a case.", ""))
	}

	ctx := c.Request().Context()
	client, err := h.store.GetClientByUser(ctx, sess.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		client, err = h.createClientFromProfile(c, sess.UserID, form.PreferredContact)
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "case submission failed", slog.Any("error", err))
		return c.Render(http.StatusOK, "submit",
			h.submitData(form, "Unable to submit your case right now. Please try again later.", ""))
	}

	_, err = h.store.CreateCase(ctx, db.Case{
		ClientID:           client.ID,
		Title:              form.Title,
		Description:        cases.CleanDescription(form.Description),
		Priority:           cases.PriorityLow,
		Status:             cases.StatusNew,
		PracticeAreaID:     practiceAreaID,
		ReferenceNo:        cases.NewReference(),
		IsPublicSubmission: true,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "case submission failed", slog.Any("error", err))
		return c.Render(http.StatusOK, "submit",
			h.submitData(form, "Unable to submit your case right now. Please try again later.", ""))
	}

	return c.Render(http.StatusOK, "submit", h.submitData(submitForm{},
		"", "Your case has been submitted successfully. We will review it and contact you soon."))
}

func (h handler) createClientFromProfile(c echo.Context, userID uint64, contactMethod string) (db.Client, error) {
	ctx := c.Request().Context()
	user, err := h.store.GetUser(ctx, userID)
	if err != nil {
		return db.Client{}, err
	}
	client := db.Client{
		UserID:                 userID,
		FirstName:              user.FirstName.String,
		LastName:               user.LastName.String,
		Email:                  user.Email,
		Phone:                  user.Phone.String,
		PreferredContactMethod: contactMethod,
	}
	client.ID, err = h.store.CreateClient(ctx, client)
	return client, err
}

// Review board.

func (h handler) review(c echo.Context) error {
	summaries, err := h.store.ListCases(c.Request().Context())
	if err != nil {
		h.logger.ErrorContext(c.Request().Context(), "failed to list cases", slog.Any("error", err))
		summaries = nil
	}
	return c.Render(http.StatusOK, "review", reviewData{Cases: summaries})
}

func (h handler) updateCase(c echo.Context) error {
	caseID, err := strconv.ParseUint(c.FormValue("case_id"), 10, 64)
	title := strings.TrimSpace(c.FormValue("title"))
	description := strings.TrimSpace(c.FormValue("description"))
	priority := strings.ToLower(c.FormValue("priority"))
	status, statusErr := strconv.Atoi(c.FormValue("status_id"))

	if err != nil || title == "" || description == "" || priority == "" || statusErr != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing required fields"})
	}
	if !cases.ValidPriority(priority) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid priority value"})
	}
	if !cases.ValidStatus(status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid status value"})
	}

	err = h.store.UpdateCase(c.Request().Context(), caseID, title,
		cases.CleanDescription(description), priority, status)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Case not found"})
	case err != nil:
		h.logger.ErrorContext(c.Request().Context(), "failed to update case", slog.Any("error", err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update case"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// User administration.

func (h handler) users(c echo.Context) error {
	users, err := h.store.ListUsers(c.Request().Context())
	if err != nil {
		h.logger.ErrorContext(c.Request().Context(), "failed to list users", slog.Any("error", err))
		return c.Render(http.StatusOK, "users", usersData{
			ErrorMessage: "Unable to load user accounts right now.",
		})
	}
	return c.Render(http.StatusOK, "users", usersData{Users: users})
}

func (h handler) deleteUser(c echo.Context) error {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid user ID"})
	}
	err = h.store.DeleteUser(c.Request().Context(), userID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "User not found"})
	case err != nil:
		h.logger.ErrorContext(c.Request().Context(), "failed to delete user", slog.Any("error", err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to delete user"})
	}
	return c.Redirect(http.StatusSeeOther, "/users")
}

// beginSession returns the request's session, creating one and setting
// its cookie if none exists.
func (h handler) beginSession(c echo.Context) (sec.Session, error) {
	if sess, ok := currentSession(c); ok {
		return sess, nil
	}
	sess, err := h.sessions.Issue()
	if err != nil {
		return sec.Session{}, err
	}
	c.Set(sessionContextKey, sess)
	setSessionCookie(c, sess.Token)
	return sess, nil
}
