// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"regexp"
	"strings"

	"overthinkistan/internal/models"

	"github.com/brianvoe/gofakeit/v6"
)

// DefaultPassword is the plaintext password of every generated user.
const DefaultPassword = "Password123"

var usernameUnsafe = regexp.MustCompile(`[^a-z0-9_]`)

var genders = []models.Gender{
	models.GenderMale,
	models.GenderFemale,
	models.GenderOther,
	models.GenderPreferNotToSay,
}

// Factory builds unsaved domain entities with fake content. A Factory is not
// safe for concurrent use.
type Factory struct {
	faker *gofakeit.Faker
	// suffix keeps generated usernames unique within one factory
	next int
}

// NewFactory creates a Factory. The same seed yields the same sequence of
// entities; seed 0 picks a random one.
func NewFactory(seed int64) *Factory {
	return &Factory{faker: gofakeit.New(seed)}
}

// BuildUser returns a registration-valid user with DefaultPassword in
// plaintext. Overrides run last.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	f.next++
	first := f.faker.FirstName()
	last := f.faker.LastName()

	user := &models.User{
		Name:               padName(first),
		Surname:            padName(last),
		Username:           f.username(first),
		Password:           DefaultPassword,
		Biography:          f.faker.Sentence(12),
		Gender:             genders[f.faker.Number(0, len(genders)-1)],
		ProfilePhoto:       fmt.Sprintf("https://i.pravatar.cc/150?u=%s", f.faker.UUID()),
		TermsAndConditions: true,
	}
	user.Email = user.Username + "@example.com"

	for _, override := range overrides {
		override(user)
	}
	return user
}

func (f *Factory) username(first string) string {
	suffix := fmt.Sprintf("_%d", f.next)
	base := usernameUnsafe.ReplaceAllString(strings.ToLower(first), "")
	if len(base) < 3 {
		base = "user"
	}
	if limit := 20 - len(suffix); len(base) > limit {
		base = base[:limit]
	}
	return base + suffix
}

// padName keeps very short fake names above the two character minimum.
func padName(name string) string {
	if len([]rune(strings.TrimSpace(name))) < 2 {
		return name + "x"
	}
	return name
}

// BuildPost returns a post filed under up to two of categories. The author is
// recorded by the service that stores it.
func (f *Factory) BuildPost(categories []*models.Category, overrides ...func(*models.Post)) *models.Post {
	post := &models.Post{
		Content:        f.content(),
		CategoryRefIDs: models.StringList{},
		IsAnonymous:    f.faker.Number(1, 10) == 1,
	}
	if f.faker.Number(1, 10) <= 3 {
		post.PhotoURL = fmt.Sprintf("https://picsum.photos/seed/%s/800/800", f.faker.UUID())
	}

	if len(categories) > 0 {
		picks := f.faker.Number(1, min(2, len(categories)))
		start := f.faker.Number(0, len(categories)-1)
		for i := range picks {
			c := categories[(start+i)%len(categories)]
			post.CategoryRefIDs = append(post.CategoryRefIDs, c.RefID)
		}
	}

	for _, override := range overrides {
		override(post)
	}
	return post
}

func (f *Factory) content() string {
	switch f.faker.Number(0, 2) {
	case 0:
		return f.faker.Question() + " " + f.faker.Sentence(15)
	case 1:
		return f.faker.Quote()
	default:
		return f.faker.Paragraph(1, 3, 12, "\n")
	}
}
