package loyalty

import (
	"strings"

	"github.com/hackgods/steammaster-scheduling/internal/appointment"
)

// Rate awards Points when Keyword occurs in a service name.
type Rate struct {
	Keyword string
	Points  int
}

// Rates is the earning table. Matching is a case-insensitive substring test
// and every matching keyword adds, so "Halvkombi" earns for both
// "halvkombi" and "kombi".
var Rates = []Rate{
	{"sedan", 20},
	{"småbil", 20},
	{"halvkombi", 20},
	{"kombi", 30},
	{"suv", 30},
	{"minibuss", 40},
	{"husbil", 40},
	{"båt", 50},
	{"boat", 50},
	{"rekonditionering", 100},
	{"reconditioning", 100},
}

// Rewards maps reward names to their point cost.
var Rewards = map[string]int{
	"wash":           100,
	"interior":       250,
	"reconditioning": 500,
}

// InviteBonus is credited per invite. Nothing confirms the invitee joined.
const InviteBonus = 50

// PointsFor returns the points a single service name earns.
func PointsFor(serviceName string) int {
	name := strings.ToLower(serviceName)
	points := 0
	for _, r := range Rates {
		if strings.Contains(name, r.Keyword) {
			points += r.Points
		}
	}
	return points
}

// Earned sums points over every service of every attended appointment.
func Earned(appts []appointment.Appointment) int {
	total := 0
	for _, a := range appts {
		if a.Status != appointment.StatusAttended {
			continue
		}
		for _, name := range a.ServiceNames {
			total += PointsFor(name)
		}
	}
	return total
}

func Balance(earned, redeemed, invite int) int {
	return earned - redeemed + invite
}

// Redeem deducts cost when the balance covers it. Otherwise the balance is
// returned unchanged and accepted is false.
func Redeem(balance, cost int) (newBalance int, accepted bool) {
	if cost < 0 || balance < cost {
		return balance, false
	}
	return balance - cost, true
}

// RedeemReward looks the reward up in Rewards. Unknown rewards are rejected.
func RedeemReward(balance int, reward string) (newBalance int, cost int, accepted bool) {
	cost, ok := Rewards[reward]
	if !ok {
		return balance, 0, false
	}
	newBalance, accepted = Redeem(balance, cost)
	return newBalance, cost, accepted
}

// Invite returns the invite bonus unconditionally.
func Invite() int {
	return InviteBonus
}
