package services

import (
	"fmt"
	"net/url"
	"strconv"

	"menu-companion/config"
	"menu-companion/models"
)

// Restaurant holds what the outbound links need.
type Restaurant struct {
	Name      string
	Phone     string
	Instagram string // username without "@"
	Location  models.Location
}

func NewRestaurant(cfg config.RestaurantConfig) Restaurant {
	return Restaurant{
		Name:      cfg.Name,
		Phone:     cfg.Phone,
		Instagram: cfg.Instagram,
		Location:  models.NewLocation(cfg.Name, cfg.Lat, cfg.Lon),
	}
}

func (r Restaurant) PhoneURI() string {
	return "tel:" + r.Phone
}

func (r Restaurant) InstagramAppURI() string {
	return "instagram://user?username=" + url.QueryEscape(r.Instagram)
}

func (r Restaurant) InstagramWebURL() string {
	return "https://www.instagram.com/" + url.PathEscape(r.Instagram)
}

// InstagramURL is the app URI when the app is installed, the web page otherwise.
func (r Restaurant) InstagramURL(appInstalled bool) string {
	if appInstalled {
		return r.InstagramAppURI()
	}
	return r.InstagramWebURL()
}

// NavigationApp is a maps application offered for directions.
type NavigationApp string

const (
	Waze       NavigationApp = "waze"
	GoogleMaps NavigationApp = "google_maps"
	AppleMaps  NavigationApp = "apple_maps"
)

// NavigationApps lists the apps in the order they are offered.
func NavigationApps() []NavigationApp {
	return []NavigationApp{Waze, GoogleMaps, AppleMaps}
}

// ParseNavigationApp returns the app named s.
func ParseNavigationApp(s string) (NavigationApp, bool) {
	for _, a := range NavigationApps() {
		if string(a) == s {
			return a, true
		}
	}
	return "", false
}

func (a NavigationApp) DisplayName() string {
	switch a {
	case Waze:
		return "Waze"
	case GoogleMaps:
		return "Google Maps"
	case AppleMaps:
		return "Apple Maps"
	}
	return string(a)
}

// AppScheme is the URL scheme probed to see whether the app is installed.
// Apple Maps is always present and has none.
func (a NavigationApp) AppScheme() string {
	switch a {
	case Waze:
		return "waze://"
	case GoogleMaps:
		return "comgooglemaps://"
	}
	return ""
}

// URL returns the directions link for loc. When the app is not installed,
// Waze and Google Maps return their App Store pages instead.
func (a NavigationApp) URL(loc models.Location, installed bool) string {
	lat, lon := coord(loc.Lat()), coord(loc.Lon())
	switch a {
	case Waze:
		if installed {
			return fmt.Sprintf("https://waze.com/ul?ll=%s,%s&navigate=yes", lat, lon)
		}
		return "http://itunes.apple.com/us/app/id323229106"
	case GoogleMaps:
		if installed {
			return fmt.Sprintf("comgooglemaps://?daddr=%s,%s&directionsmode=driving", lat, lon)
		}
		return "https://itunes.apple.com/us/app/google-maps/id585027354?mt=8"
	}
	return fmt.Sprintf("https://maps.apple.com/?daddr=%s,%s&t=k", lat, lon)
}

// WebURL is an https directions link that works without the app, for
// clients that can only open web links.
func (a NavigationApp) WebURL(loc models.Location) string {
	lat, lon := coord(loc.Lat()), coord(loc.Lon())
	switch a {
	case Waze:
		return fmt.Sprintf("https://waze.com/ul?ll=%s,%s&navigate=yes", lat, lon)
	case GoogleMaps:
		return fmt.Sprintf("https://www.google.com/maps/dir/?api=1&destination=%s,%s&travelmode=driving", lat, lon)
	}
	return fmt.Sprintf("https://maps.apple.com/?daddr=%s,%s&t=k", lat, lon)
}

func coord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
