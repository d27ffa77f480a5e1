package trainerroad

import (
	"strings"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// CatalogQuery is the caller-facing part of a catalog search
type CatalogQuery struct {
	PageSize   int
	PageNumber int
	SearchText string
}

// normalized applies paging defaults and bounds
func (q CatalogQuery) normalized() CatalogQuery {
	if q.PageSize <= 0 {
		q.PageSize = defaultPageSize
	}
	if q.PageSize > maxPageSize {
		q.PageSize = maxPageSize
	}
	if q.PageNumber < 1 {
		q.PageNumber = 1
	}
	q.SearchText = strings.TrimSpace(q.SearchText)
	return q
}

// The catalog endpoint rejects partial predicates, so none of these fields
// use omitempty: every facet is sent with its zero value.

type durationFacets struct {
	LessThanOneHour        bool `json:"lessThanOneHour"`
	OneHour                bool `json:"oneHour"`
	OneToOneAndHalfHours   bool `json:"oneToOneAndHalfHours"`
	OneAndHalfToTwoHours   bool `json:"oneAndHalfToTwoHours"`
	TwoToTwoAndHalfHours   bool `json:"twoToTwoAndHalfHours"`
	MoreThanTwoAndHalfHour bool `json:"moreThanTwoAndHalfHours"`
}

type zoneFacets struct {
	Recovery   bool `json:"recovery"`
	Endurance  bool `json:"endurance"`
	Tempo      bool `json:"tempo"`
	SweetSpot  bool `json:"sweetSpot"`
	Threshold  bool `json:"threshold"`
	VO2Max     bool `json:"vo2Max"`
	Anaerobic  bool `json:"anaerobic"`
	Sprint     bool `json:"sprint"`
	Multi      bool `json:"multi"`
	TestRamp   bool `json:"testRamp"`
	TestFTP    bool `json:"testFtp"`
	TestOther  bool `json:"testOther"`
	Unassigned bool `json:"unassigned"`
}

type disciplineFacets struct {
	Ride     bool `json:"ride"`
	Run      bool `json:"run"`
	Swim     bool `json:"swim"`
	Strength bool `json:"strength"`
	Other    bool `json:"other"`
}

type levelRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type catalogPredicate struct {
	PageSize         int              `json:"pageSize"`
	PageNumber       int              `json:"pageNumber"`
	TotalCount       int              `json:"totalCount"`
	SearchText       string           `json:"searchText"`
	SortProperty     string           `json:"sortProperty"`
	IsDescending     bool             `json:"isDescending"`
	IsFavorite       bool             `json:"isFavorite"`
	IsCustom         bool             `json:"isCustom"`
	IsInstructional  bool             `json:"isInstructional"`
	IsOutside        bool             `json:"isOutside"`
	IsStandard       bool             `json:"isStandard"`
	HasVideo         bool             `json:"hasVideo"`
	IsTeamWorkout    bool             `json:"isTeamWorkout"`
	IncludeRetired   bool             `json:"includeRetired"`
	Durations        durationFacets   `json:"durations"`
	Zones            zoneFacets       `json:"zones"`
	Disciplines      disciplineFacets `json:"disciplines"`
	Levels           levelRange       `json:"levels"`
	ProfileIDs       []int64          `json:"profileIds"`
	ExcludedIDs      []int64          `json:"excludedIds"`
	Tags             []string         `json:"tags"`
	ProgressionIDs   []int64          `json:"progressionIds"`
	TrainingPlanIDs  []int64          `json:"trainingPlanIds"`
	AuthorAccountIDs []int64          `json:"authorAccountIds"`
}

// newCatalogPredicate builds the request body for a catalog search with all
// facets explicitly at their defaults. Slices are empty, never null.
func newCatalogPredicate(q CatalogQuery) catalogPredicate {
	return catalogPredicate{
		PageSize:         q.PageSize,
		PageNumber:       q.PageNumber,
		SearchText:       q.SearchText,
		SortProperty:     "Name",
		ProfileIDs:       []int64{},
		ExcludedIDs:      []int64{},
		Tags:             []string{},
		ProgressionIDs:   []int64{},
		TrainingPlanIDs:  []int64{},
		AuthorAccountIDs: []int64{},
	}
}
