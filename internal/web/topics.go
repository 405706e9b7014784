package web

type topicMeta struct {
	Title       string
	Description string
}

var knownTopics = map[string]topicMeta{
	"intro": {
		Title:       "Introduction to Machine Learning",
		Description: "Fundamentals of machine learning and its applications",
	},
	"supervised": {
		Title:       "Supervised Learning",
		Description: "Regression and classification algorithms for labeled data",
	},
	"unsupervised": {
		Title:       "Unsupervised Learning",
		Description: "Clustering and dimension reduction techniques",
	},
	"deep-learning": {
		Title:       "Deep Learning",
		Description: "Neural networks and advanced models",
	},
}

// topicInfo returns display text for a topic id. Unknown ids are titled
// with the id itself.
func topicInfo(id string) (topicMeta, bool) {
	m, ok := knownTopics[id]
	if !ok {
		m.Title = id
	}
	return m, ok
}

// PageTitle is the heading of a topic page.
func PageTitle(id string) string {
	if m, ok := topicInfo(id); ok {
		return m.Title
	}
	return "Theory"
}
