package headhunter

import (
	"context"
	"fmt"
	"net/url"
	"reflect"
	"strconv"

	"github.com/mitchellh/mapstructure"
)

const (
	SearchPath = "/vacancies"
)

type SearchParams struct {
	Text string `yaml:"text"`
	// hhparam is custom tag for reflect. Please see below.
	Areas       []int    `hhparam:"area"`
	Clusters    bool     `yaml:"clusters"`
	OrderBy     string   `yaml:"order_by" mapstructure:"order_by"`
	Employer    uint     `yaml:"employer_id" mapstructure:"employer_id"`
	SearchField string   `yaml:"search_field" mapstructure:"search_field"`
	Schedules   []string `hhparam:"schedule"`
	PerPage     string   `yaml:"per_page" mapstructure:"per_page"`
	Experience  string   `yaml:"experience"`
	Period      uint     `yaml:"period"`
}

// Search returns all vacancies found for params. Descriptions and key skills
// are not part of search results; see GetVacancy.
func (c *Client) Search(ctx context.Context, params *SearchParams) (*Vacancies, error) {
	var vacancies []*Vacancy

	if params == nil {
		params = &SearchParams{}
	}

	// Set per_page max as possible. It should be faster.
	if params.PerPage == "" {
		params.PerPage = perPage
	}

	q := buildParams(params)
	apiURLSearch := fmt.Sprintf("%s%s", c.APIURL, SearchPath)

	items, err := c.GetItems(ctx, apiURLSearch, q)
	if err != nil {
		return nil, err
	}

	cfg := &mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           &vacancies,
		TagName:          "json",
		WeaklyTypedInput: true,
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(items); err != nil {
		return nil, fmt.Errorf("decoding vacancies: %w", err)
	}

	return &Vacancies{
		Items: vacancies,
	}, nil
}

func buildParams(params *SearchParams) url.Values {
	q := url.Values{}
	fields := reflect.VisibleFields(reflect.TypeOf(*params))
	for _, field := range fields {
		// Our custom tag is using here.
		key := field.Tag.Get("hhparam")
		if key == "" {
			// Failover to default tag if our tag do not exist.
			key = field.Tag.Get("yaml")
		}
		kind := field.Type.Kind()
		switch kind {
		case reflect.Slice:

			s := reflect.ValueOf(params).Elem().Field(field.Index[0]).Interface()
			switch v := s.(type) {
			case []int:
				for _, value := range v {
					q.Add(key, strconv.Itoa(value))
				}

			case []string:
				for _, value := range v {
					q.Add(key, value)
				}
			}

		default:
			value := fmt.Sprintf("%v", reflect.ValueOf(params).Elem().Field(field.Index[0]).Interface())
			if value != "" && value != "0" && value != "false" {
				q.Set(key, value)
			}
		}
	}

	return q
}
