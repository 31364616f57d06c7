package filters

// Snapshot is the plain-data form of a State: keyword sets become sorted
// arrays so it can be stored as JSON or a DynamoDB item.
type Snapshot struct {
	Limit                   int                 `json:"limit" dynamodbav:"limit"`
	Offset                  int                 `json:"offset" dynamodbav:"offset"`
	SortOrder               string              `json:"sortOrder,omitempty" dynamodbav:"sortOrder,omitempty"`
	OrderBy                 string              `json:"orderBy,omitempty" dynamodbav:"orderBy,omitempty"`
	HideZeroRating          bool                `json:"hideZeroRating,omitempty" dynamodbav:"hideZeroRating,omitempty"`
	Keywords                map[string][]string `json:"keywords,omitempty" dynamodbav:"keywords,omitempty"`
	Operators               map[string]string   `json:"operators,omitempty" dynamodbav:"operators,omitempty"`
	CategoryFilterOperator  string              `json:"categoryFilterOperator,omitempty" dynamodbav:"categoryFilterOperator,omitempty"`
	Rating                  *int                `json:"rating,omitempty" dynamodbav:"rating,omitempty"`
	RatingOperator          string              `json:"ratingOperator,omitempty" dynamodbav:"ratingOperator,omitempty"`
	DropboxPathPrefix       string              `json:"dropboxPathPrefix,omitempty" dynamodbav:"dropboxPathPrefix,omitempty"`
	FilenameQuery           string              `json:"filenameQuery,omitempty" dynamodbav:"filenameQuery,omitempty"`
	PermatagPositiveMissing bool                `json:"permatagPositiveMissing,omitempty" dynamodbav:"permatagPositiveMissing,omitempty"`
	ListID                  string              `json:"listId,omitempty" dynamodbav:"listId,omitempty"`
	ListExcludeID           string              `json:"listExcludeId,omitempty" dynamodbav:"listExcludeId,omitempty"`
}

// Serialize converts s to its plain-data form.
func Serialize(s State) Snapshot {
	s = s.normalize()
	snap := Snapshot{
		Limit:                   s.Limit,
		Offset:                  s.Offset,
		SortOrder:               s.SortOrder,
		OrderBy:                 s.OrderBy,
		HideZeroRating:          s.HideZeroRating,
		CategoryFilterOperator:  s.CategoryFilterOperator,
		RatingOperator:          s.RatingOperator,
		DropboxPathPrefix:       s.DropboxPathPrefix,
		FilenameQuery:           s.FilenameQuery,
		PermatagPositiveMissing: s.PermatagPositiveMissing,
		ListID:                  s.ListID,
		ListExcludeID:           s.ListExcludeID,
	}
	if s.Rating != nil {
		r := *s.Rating
		snap.Rating = &r
	}
	if len(s.Keywords) > 0 {
		snap.Keywords = make(map[string][]string, len(s.Keywords))
		snap.Operators = make(map[string]string, len(s.Operators))
		for cat, set := range s.Keywords {
			snap.Keywords[cat] = set.Sorted()
			snap.Operators[cat] = s.Operators[cat]
		}
	}
	return snap
}

// Deserialize rebuilds a State from its plain-data form.
func Deserialize(snap Snapshot) State {
	s := State{
		Limit:                   snap.Limit,
		Offset:                  snap.Offset,
		SortOrder:               snap.SortOrder,
		OrderBy:                 snap.OrderBy,
		HideZeroRating:          snap.HideZeroRating,
		CategoryFilterOperator:  snap.CategoryFilterOperator,
		RatingOperator:          snap.RatingOperator,
		DropboxPathPrefix:       snap.DropboxPathPrefix,
		FilenameQuery:           snap.FilenameQuery,
		PermatagPositiveMissing: snap.PermatagPositiveMissing,
		ListID:                  snap.ListID,
		ListExcludeID:           snap.ListExcludeID,
		Keywords:                make(map[string]KeywordSet, len(snap.Keywords)),
		Operators:               make(map[string]string, len(snap.Operators)),
	}
	if snap.Rating != nil {
		r := *snap.Rating
		s.Rating = &r
	}
	for cat, kws := range snap.Keywords {
		s.Keywords[cat] = NewKeywordSet(kws...)
	}
	for cat, op := range snap.Operators {
		s.Operators[cat] = op
	}
	return s.normalize()
}

// Serialize returns the plain-data form of the container's state.
func (c *Container) Serialize() Snapshot {
	return Serialize(c.State())
}

// Deserialize replaces the container's state with snap.
func (c *Container) Deserialize(snap Snapshot) {
	c.commit(Deserialize(snap))
}
