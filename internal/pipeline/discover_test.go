package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/dtb-digital/prospect-agent/internal/model"
	"github.com/dtb-digital/prospect-agent/pkg/hunter"
	hmocks "github.com/dtb-digital/prospect-agent/pkg/hunter/mocks"
)

func TestDiscover_ConvertsContacts(t *testing.T) {
	t.Parallel()

	hc := hmocks.NewMockClient(t)
	e := contact(" jane@acme.com ", "jane", "DOE", "VP Engineering", "https://www.linkedin.com/in/jane")
	e.Department = strp("engineering")
	e.Seniority = strp("executive")
	e.PhoneNumber = strp("+47 12345678")
	hc.On("DomainSearch", mock.Anything, hunter.DomainSearchRequest{Domain: "acme.com", Offset: 0, Limit: 10}).
		Return(page(1, e), nil).Once()

	s := &discoverStage{hunter: hc, pageSize: 10, calc: testCalc()}
	d, err := s.Run(context.Background(), stateWith())
	require.NoError(t, err)

	require.Len(t, d.Users, 1)
	u := d.Users[0]
	assert.Equal(t, "jane@acme.com", u.Email)
	assert.Equal(t, "Jane", u.FirstName)
	assert.Equal(t, "Doe", u.LastName)
	assert.Equal(t, "VP Engineering", u.RoleTitle)
	assert.Equal(t, "https://www.linkedin.com/in/jane", u.ProfileURL)
	assert.Equal(t, 90, *u.Confidence)
	assert.Equal(t, "engineering", u.Department)
	assert.Equal(t, "executive", u.Seniority)
	assert.Equal(t, "+47 12345678", u.PhoneNumber)
	assert.Equal(t, model.Sources{model.TagDiscovered}, u.Sources)
	assert.Equal(t, 1, d.Candidates)
	assert.Greater(t, d.Usage.Cost, 0.0)
}

func TestDiscover_PagesUntilTotalReached(t *testing.T) {
	t.Parallel()

	hc := hmocks.NewMockClient(t)
	hc.On("DomainSearch", mock.Anything, hunter.DomainSearchRequest{Domain: "acme.com", Offset: 0, Limit: 2}).
		Return(page(3, contact("a@acme.com", "", "", "", ""), contact("b@acme.com", "", "", "", "")), nil).Once()
	hc.On("DomainSearch", mock.Anything, hunter.DomainSearchRequest{Domain: "acme.com", Offset: 2, Limit: 2}).
		Return(page(3, contact("c@acme.com", "", "", "", "")), nil).Once()

	st := stateWith()
	st.Request.SearchDepth = 5
	s := &discoverStage{hunter: hc, pageSize: 2, calc: testCalc()}

	d, err := s.Run(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, []string{"a@acme.com", "b@acme.com", "c@acme.com"}, emails(d.Users))
}

func TestDiscover_StopsAtSearchDepth(t *testing.T) {
	t.Parallel()

	hc := hmocks.NewMockClient(t)
	hc.On("DomainSearch", mock.Anything, mock.Anything).
		Return(page(100, contact("a@acme.com", "", "", "", "")), nil).Once()

	s := &discoverStage{hunter: hc, pageSize: 1, calc: testCalc()}
	d, err := s.Run(context.Background(), stateWith())
	require.NoError(t, err)
	assert.Len(t, d.Users, 1)
}

func TestDiscover_StopsOnEmptyPage(t *testing.T) {
	t.Parallel()

	hc := hmocks.NewMockClient(t)
	hc.On("DomainSearch", mock.Anything, mock.Anything).Return(page(0), nil).Once()

	st := stateWith()
	st.Request.SearchDepth = 3
	s := &discoverStage{hunter: hc, pageSize: 5, calc: testCalc()}
	d, err := s.Run(context.Background(), st)
	require.NoError(t, err)
	assert.Empty(t, d.Users)
}

func TestDiscover_FirstPageFailureIsStageError(t *testing.T) {
	t.Parallel()

	hc := hmocks.NewMockClient(t)
	hc.On("DomainSearch", mock.Anything, mock.Anything).Return(nil, errors.New("hunter: status 401")).Once()

	s := &discoverStage{hunter: hc, pageSize: 5, calc: testCalc()}
	_, err := s.Run(context.Background(), stateWith())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discover: domain search")
}

func TestDiscover_LaterPageFailureKeepsEarlierPages(t *testing.T) {
	t.Parallel()

	hc := hmocks.NewMockClient(t)
	hc.On("DomainSearch", mock.Anything, hunter.DomainSearchRequest{Domain: "acme.com", Offset: 0, Limit: 1}).
		Return(page(5, contact("a@acme.com", "", "", "", "")), nil).Once()
	hc.On("DomainSearch", mock.Anything, hunter.DomainSearchRequest{Domain: "acme.com", Offset: 1, Limit: 1}).
		Return(nil, errors.New("timeout")).Once()

	st := stateWith()
	st.Request.SearchDepth = 3
	s := &discoverStage{hunter: hc, pageSize: 1, calc: testCalc()}

	d, err := s.Run(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, []string{"a@acme.com"}, emails(d.Users))
	require.Len(t, d.Traces, 1)
	assert.Equal(t, model.TraceCollaboratorUnreachable, d.Traces[0].Kind)
}

func TestNormalizeName(t *testing.T) {
	t.Parallel()

	caser := cases.Title(language.Und)
	tests := map[string]string{
		"":         "",
		"  ola ":   "Ola",
		"NORDMANN": "Nordmann",
		"McArthur": "McArthur",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizeName(in, caser), in)
	}
}
