package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const profileNameSelector = "h1.text-heading-xlarge"

const (
	maxExperienceItems = 10
	maxEducationItems  = 5
)

// Template2024 reads the profile layout built from artdeco list items
type Template2024 struct{}

func (Template2024) Version() string { return "template-2024" }

func (Template2024) Match(doc *goquery.Document) bool {
	return doc.Find(profileNameSelector).Length() > 0 ||
		doc.Find("li.artdeco-list__item").Length() > 0
}

func (Template2024) Extract(doc *goquery.Document, pageURL string) RawProfile {
	raw := RawProfile{
		ProfileURL: pageURL,
		Name:       text(doc.Find(profileNameSelector).First()),
		Headline:   text(doc.Find("div.text-body-medium").First()),
		Location:   text(doc.Find("span.text-body-small.inline").First()),
		Summary:    text(doc.Find("section.pv-about-section div.inline-show-more-text").First()),
	}
	if id, ok := ExtractLinkedInID(pageURL); ok {
		raw.LinkedInID = id
	}

	doc.Find("li.artdeco-list__item.pvs-list__item--line-separated").EachWithBreak(func(_ int, item *goquery.Selection) bool {
		exp := RawExperience{
			Company:   text(item.Find("span.t-14.t-normal").Not(".t-black--light").First()),
			Title:     firstLine(item.Find("span.t-bold").First()),
			DateRange: text(item.Find("span.t-14.t-normal.t-black--light").First()),
		}
		if exp.Company != "" || exp.Title != "" {
			raw.Experience = append(raw.Experience, exp)
		}
		return len(raw.Experience) < maxExperienceItems
	})

	doc.Find(`section[id*="education"]`).First().Find("li.artdeco-list__item").EachWithBreak(func(_ int, item *goquery.Selection) bool {
		edu := RawEducation{
			Institution: text(item.Find("span.t-bold span").First()),
			Degree:      text(item.Find("span.t-14.t-normal").Not(".t-black--light").Find("span").First()),
			Years:       text(item.Find("span.t-14.t-normal.t-black--light").First()),
		}
		if edu.Institution != "" {
			raw.Education = append(raw.Education, edu)
		}
		return len(raw.Education) < maxEducationItems
	})

	return raw
}

// text returns the visible text of a node. Profile markup repeats each label
// in a visually hidden span, so the aria-hidden copy wins when present.
func text(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	if visible := sel.Find(`span[aria-hidden="true"]`).First(); visible.Length() > 0 {
		return collapse(visible.Text())
	}
	return collapse(sel.Text())
}

func firstLine(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	if visible := sel.Find(`span[aria-hidden="true"]`).First(); visible.Length() > 0 {
		sel = visible
	}
	for _, line := range strings.Split(sel.Text(), "\n") {
		if line = collapse(line); line != "" {
			return line
		}
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
