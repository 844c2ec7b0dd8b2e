package appointment

import (
	"sort"
)

// GroupByDate buckets appointments by ISO date. Each bucket keeps input order.
func GroupByDate(appts []Appointment) map[string][]Appointment {
	groups := make(map[string][]Appointment)
	for _, a := range appts {
		key := a.AppointmentDate.String()
		groups[key] = append(groups[key], a)
	}
	return groups
}

// SortedDates returns the bucket keys of GroupByDate in ascending order.
func SortedDates(groups map[string][]Appointment) []string {
	dates := make([]string, 0, len(groups))
	for d := range groups {
		dates = append(dates, d)
	}
	// ISO dates sort chronologically as strings
	sort.Strings(dates)
	return dates
}

// CountByStatus always reports all four statuses.
func CountByStatus(appts []Appointment) map[Status]int {
	counts := make(map[Status]int, len(Statuses))
	for _, s := range Statuses {
		counts[s] = 0
	}
	for _, a := range appts {
		counts[a.Status]++
	}
	return counts
}

// ServiceFrequency counts every service name of every appointment.
func ServiceFrequency(appts []Appointment) map[string]int {
	freq := make(map[string]int)
	for _, a := range appts {
		for _, name := range a.ServiceNames {
			freq[name]++
		}
	}
	return freq
}

// CustomerFrequency keys on the literal customer name.
func CustomerFrequency(appts []Appointment) map[string]int {
	freq := make(map[string]int)
	for _, a := range appts {
		freq[a.CustomerName]++
	}
	return freq
}

// MonthlyGrowth buckets by the appointment's month, labelled "Jan 2006".
func MonthlyGrowth(appts []Appointment) map[string]int {
	growth := make(map[string]int)
	for _, a := range appts {
		growth[a.AppointmentDate.MonthLabel()]++
	}
	return growth
}

type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// TopCustomers returns the n most frequent customers, ties broken by name.
func TopCustomers(freq map[string]int, n int) []Count {
	out := make([]Count, 0, len(freq))
	for name, c := range freq {
		out = append(out, Count{Name: name, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// SortByDateTime returns a copy ordered by date then HH:MM time.
func SortByDateTime(appts []Appointment) []Appointment {
	out := make([]Appointment, len(appts))
	copy(out, appts)
	sort.SliceStable(out, func(i, j int) bool {
		di, dj := out[i].AppointmentDate, out[j].AppointmentDate
		if !di.Time().Equal(dj.Time()) {
			return di.Before(dj)
		}
		return out[i].AppointmentTime < out[j].AppointmentTime
	})
	return out
}

// Metrics mirrors the dashboard cards. Scheduled is the total number of
// bookings, not the count of the scheduled status.
type Metrics struct {
	Scheduled int `json:"scheduled"`
	Attended  int `json:"attended"`
	Cancelled int `json:"cancelled"`
	NoShow    int `json:"noShow"`
}

type Summary struct {
	Metrics          Metrics        `json:"metrics"`
	StatusCounts     map[Status]int `json:"statusCounts"`
	ServiceFrequency map[string]int `json:"serviceFrequency"`
	TopCustomers     []Count        `json:"topCustomers"`
	MonthlyGrowth    map[string]int `json:"monthlyGrowth"`
}

const topCustomersLimit = 5

func Summarize(appts []Appointment) Summary {
	counts := CountByStatus(appts)
	return Summary{
		Metrics: Metrics{
			Scheduled: len(appts),
			Attended:  counts[StatusAttended],
			Cancelled: counts[StatusCancelled],
			NoShow:    counts[StatusNoShow],
		},
		StatusCounts:     counts,
		ServiceFrequency: ServiceFrequency(appts),
		TopCustomers:     TopCustomers(CustomerFrequency(appts), topCustomersLimit),
		MonthlyGrowth:    MonthlyGrowth(appts),
	}
}
