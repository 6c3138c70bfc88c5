package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"menu-companion/lang"
	"menu-companion/models"
	"menu-companion/services"

	"github.com/gin-gonic/gin"
)

type itemView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Group     string `json:"group,omitempty"`
	Info      string `json:"info,omitempty"`
	Price     *int64 `json:"price,omitempty"`
	PriceText string `json:"price_text"`
	Index     int64  `json:"index"`
	Image     string `json:"image,omitempty"`
}

type sectionView struct {
	Group string     `json:"group"`
	Meals []itemView `json:"meals"`
}

func viewOf(m models.MenuItem, code string) itemView {
	v := itemView{
		ID:        m.ID,
		Name:      m.Name.In(code),
		Group:     m.Group.In(code),
		Info:      m.Info.In(code),
		Price:     m.Price,
		PriceText: lang.Price(code, m.Price),
		Index:     m.SortIndex(),
	}
	if m.ID != "" {
		v.Image = "/v1/images/" + m.ID
	}
	return v
}

func (s *Server) languages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"default": s.defaultLang, "languages": lang.Languages()})
}

func (s *Server) stringsTable(c *gin.Context) {
	code := s.langOf(c)
	c.JSON(http.StatusOK, gin.H{"language": code, "strings": s.strings.For(code)})
}

func (s *Server) loadError(c *gin.Context, code string, err error) {
	c.JSON(http.StatusBadGateway, gin.H{
		"error":  s.strings.For(code).T("error_loading"),
		"detail": err.Error(),
		"retry":  s.strings.For(code).T("reload"),
	})
}

func (s *Server) categories(c *gin.Context) {
	code := s.langOf(c)
	svc := s.sessions.For(code)
	cats, err := svc.EnsureCategories(c.Request.Context())
	if err != nil {
		s.loadError(c, code, err)
		return
	}
	out := make([]itemView, 0, len(cats))
	for _, cat := range cats {
		out = append(out, viewOf(cat, code))
	}
	st := svc.Snapshot()
	resp := gin.H{"language": code, "categories": out, "loading": st.Loading}
	if st.Err != nil {
		// a meal load failed earlier in this session; POST /v1/reload clears it
		resp["last_error"] = st.Err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) meals(c *gin.Context) {
	code := s.langOf(c)
	id := c.Param("id")
	svc := s.sessions.For(code)
	meals, err := svc.LoadMeals(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrMissingID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.loadError(c, code, err)
		return
	}
	sections := services.GroupSections(meals, code)
	out := make([]sectionView, 0, len(sections))
	for _, sec := range sections {
		sv := sectionView{Group: sec.Group, Meals: make([]itemView, 0, len(sec.Meals))}
		for _, m := range sec.Meals {
			sv.Meals = append(sv.Meals, viewOf(m, code))
		}
		out = append(out, sv)
	}
	resp := gin.H{"language": code, "category_id": id, "sections": out}
	if cat, ok := svc.Category(id); ok {
		resp["category"] = viewOf(cat, code)
	}
	if len(meals) == 0 {
		resp["message"] = s.strings.For(code).T("meals_empty")
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) image(c *gin.Context) {
	item := models.MenuItem{ID: strings.TrimSpace(c.Param("id"))}
	var (
		img *services.Image
		err error
	)
	if c.Query("cached") == "1" {
		img, err = s.images.CachedImage(item)
	} else {
		img, err = s.images.Image(c.Request.Context(), item)
	}
	if err != nil {
		c.JSON(imageStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.Header("X-Image-Width", strconv.Itoa(img.Width))
	c.Header("X-Image-Height", strconv.Itoa(img.Height))
	c.Data(http.StatusOK, "image/"+img.Format, img.Data)
}

func imageStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrMissingID):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrNotCached), errors.Is(err, services.ErrDataUnavailable):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (s *Server) reload(c *gin.Context) {
	ctx := c.Request.Context()
	if c.Query("lang") == "" {
		if err := s.sessions.ReloadAll(ctx); err != nil {
			s.loadError(c, s.defaultLang, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"reloaded": "all"})
		return
	}
	code := s.langOf(c)
	cats, err := s.sessions.For(code).Reload(ctx)
	if err != nil {
		s.loadError(c, code, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reloaded": code, "categories": len(cats)})
}

type navView struct {
	App      string `json:"app"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Fallback string `json:"fallback"`
	WebURL   string `json:"web_url"`
	Scheme   string `json:"scheme,omitempty"`
}

func (s *Server) links(c *gin.Context) {
	code := s.langOf(c)
	t := s.strings.For(code)
	r := s.restaurant
	nav := make([]navView, 0, 3)
	for _, app := range services.NavigationApps() {
		nav = append(nav, navView{
			App:      string(app),
			Name:     app.DisplayName(),
			URL:      app.URL(r.Location, true),
			Fallback: app.URL(r.Location, false),
			WebURL:   app.WebURL(r.Location),
			Scheme:   app.AppScheme(),
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"name":  r.Name,
		"phone": gin.H{"label": t.T("order_now"), "uri": r.PhoneURI()},
		"instagram": gin.H{
			"label": t.T("instagram"),
			"app":   r.InstagramAppURI(),
			"web":   r.InstagramWebURL(),
		},
		"location": gin.H{
			"label": t.T("location"),
			"name":  r.Location.Name,
			"lat":   r.Location.Lat(),
			"lon":   r.Location.Lon(),
		},
		"navigation": nav,
	})
}
