package domain

type SiteStatus string

const (
	SiteStatusActive  SiteStatus = "active"
	SiteStatusPlanned SiteStatus = "planned"
)

const (
	SiteMangaPark = "mangapark"
	SiteMangaDex  = "mangadex"
	SiteMangaSee  = "mangasee"
)

type Site struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	URL    string     `json:"url"`
	Status SiteStatus `json:"status"`
}

var supportedSites = []Site{
	{ID: SiteMangaPark, Name: "MangaPark", URL: "https://mangapark.net", Status: SiteStatusActive},
	{ID: SiteMangaDex, Name: "MangaDex", URL: "https://mangadex.org", Status: SiteStatusPlanned},
	{ID: SiteMangaSee, Name: "MangaSee", URL: "https://mangasee123.com", Status: SiteStatusPlanned},
}

// Sites returns a fresh copy of the static site catalog.
func Sites() []Site {
	out := make([]Site, len(supportedSites))
	copy(out, supportedSites)
	return out
}

func FindSite(id string) (Site, bool) {
	for _, s := range supportedSites {
		if s.ID == id {
			return s, true
		}
	}
	return Site{}, false
}
