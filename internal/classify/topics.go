package classify

import "strings"

// TopicOther is assigned when no keyword matches.
const TopicOther = "Other"

// topicKeywords drives headline topic tagging. Order matters: the first
// matching topic wins, so the more specific political terms come before the
// broad ones.
var topicKeywords = []struct {
	topic    string
	keywords []string
}{
	{"Politics", []string{"election", "parliament", "bjp", "congress", "party", "vote", "campaign", "political", "minister", "opposition", "lok sabha", "rajya sabha"}},
	{"Governance", []string{"policy", "scheme", "government", "cabinet", "ordinance", "bill", "reform", "administration", "governance", "ministry"}},
	{"Economy", []string{"gdp", "economy", "budget", "tax", "finance", "trade", "investment", "fiscal", "inflation", "rbi", "market"}},
	{"Infrastructure", []string{"road", "highway", "bridge", "railway", "metro", "airport", "port", "construction", "inaugurate", "project", "smart city"}},
	{"Diplomacy", []string{"summit", "bilateral", "foreign", "ambassador", "diplomatic", "treaty", "g20", "un", "nato", "brics", "quad"}},
	{"Defence", []string{"army", "navy", "airforce", "military", "defence", "defense", "weapon", "border", "security", "soldier"}},
	{"Technology", []string{"digital", "tech", "startup", "innovation", "ai", "cyber", "space", "isro", "satellite", "internet"}},
	{"Social", []string{"education", "health", "hospital", "school", "university", "poverty", "welfare", "women", "farmer", "rural"}},
	{"Event", []string{"rally", "speech", "conference", "visit", "inauguration", "ceremony", "meeting", "address", "function"}},
}

// Topic assigns a headline topic by whole-word keyword match.
func Topic(title string) string {
	if title == "" {
		return TopicOther
	}
	padded := " " + normalizeWords(title) + " "
	for _, entry := range topicKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(padded, " "+kw+" ") {
				return entry.topic
			}
		}
	}
	return TopicOther
}

func normalizeWords(s string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return ' '
		}
	}, s)
	return strings.Join(strings.Fields(mapped), " ")
}
