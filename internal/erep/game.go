package erep

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"erepbot/internal/game"
)

func (c *Client) Status(ctx context.Context) (game.Status, error) {
	var out game.Status
	err := c.call(ctx, http.MethodGet, "/v1/status", nil, &out)
	return out, err
}

func (c *Client) Battles(ctx context.Context) ([]game.Battle, error) {
	var out struct {
		Battles []game.Battle `json:"battles"`
	}
	if err := c.call(ctx, http.MethodGet, "/v1/battles", nil, &out); err != nil {
		return nil, err
	}
	return out.Battles, nil
}

func (c *Client) Contributions(ctx context.Context) ([]game.Contribution, error) {
	var out struct {
		Contributions []game.Contribution `json:"contributions"`
	}
	if err := c.call(ctx, http.MethodGet, "/v1/contributions", nil, &out); err != nil {
		return nil, err
	}
	return out.Contributions, nil
}

func (c *Client) RefreshInventory(ctx context.Context) (game.Inventory, error) {
	var out game.Inventory
	err := c.call(ctx, http.MethodGet, "/v1/inventory", nil, &out)
	return out, err
}

func (c *Client) RefreshCompanies(ctx context.Context) (game.Companies, error) {
	var out game.Companies
	err := c.call(ctx, http.MethodGet, "/v1/companies", nil, &out)
	return out, err
}

func (c *Client) RefreshMoney(ctx context.Context) (game.Money, error) {
	var out game.Money
	err := c.call(ctx, http.MethodGet, "/v1/money", nil, &out)
	return out, err
}

func (c *Client) RefreshJobInfo(ctx context.Context) (game.JobInfo, error) {
	var out game.JobInfo
	err := c.call(ctx, http.MethodGet, "/v1/job", nil, &out)
	return out, err
}

func (c *Client) Eat(ctx context.Context, color string) (game.EatResult, error) {
	var out game.EatResult
	err := c.call(ctx, http.MethodPost, "/v1/eat", map[string]any{"color": color}, &out)
	return out, err
}

func (c *Client) FightOnce(ctx context.Context, battleID int64, division game.Division, side int) (game.ShotResult, error) {
	var out game.ShotResult
	path := fmt.Sprintf("/v1/battles/%d/fight", battleID)
	err := c.call(ctx, http.MethodPost, path, map[string]any{
		"division_id": division.ID,
		"division":    division.Number,
		"side":        side,
		"air":         division.IsAir(),
	}, &out)
	return out, err
}

func (c *Client) TravelTo(ctx context.Context, country, region int) error {
	body := map[string]any{"country": country}
	if region != 0 {
		body["region"] = region
	}
	return c.call(ctx, http.MethodPost, "/v1/travel", body, nil)
}

func (c *Client) SetDefaultWeapon(ctx context.Context, battleID int64, division game.Division) error {
	path := fmt.Sprintf("/v1/battles/%d/weapon", battleID)
	return c.call(ctx, http.MethodPost, path, map[string]any{"division_id": division.ID}, nil)
}

func (c *Client) ChooseSide(ctx context.Context, battleID int64, side int) error {
	path := fmt.Sprintf("/v1/battles/%d/side", battleID)
	return c.call(ctx, http.MethodPost, path, map[string]any{"side": side}, nil)
}

func (c *Client) Work(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/v1/work", nil, nil)
}

func (c *Client) Train(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/v1/train", nil, nil)
}

func (c *Client) WorkOvertime(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/v1/work/overtime", nil, nil)
}

func (c *Client) WorkAsManager(ctx context.Context, holdingID int64) (game.WorkResult, error) {
	var out game.WorkResult
	path := fmt.Sprintf("/v1/holdings/%d/wam", holdingID)
	err := c.call(ctx, http.MethodPost, path, nil, &out)
	return out, err
}

func (c *Client) Employ(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/v1/employ", nil, nil)
}

func (c *Client) BuyGold(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/v1/market/gold", nil, nil)
}

func (c *Client) CandidateCongress(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/v1/candidacy/congress", nil, nil)
}

func (c *Client) CandidatePartyPresidency(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/v1/candidacy/party-presidency", nil, nil)
}

func (c *Client) ContributeCC(ctx context.Context, amount int) error {
	return c.call(ctx, http.MethodPost, "/v1/treasury/contribute", map[string]any{"amount": amount}, nil)
}

func (c *Client) RenewHouses(ctx context.Context) (time.Time, error) {
	var out struct {
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := c.call(ctx, http.MethodPost, "/v1/houses/renew", nil, &out); err != nil {
		return time.Time{}, err
	}
	return out.ExpiresAt, nil
}
