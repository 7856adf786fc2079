// Package observability provides formatted output for the report command.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/jobstats/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow caps long listings such as employer job expansions
	maxItemsToShow = 10
)

// Printer handles formatted report output
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintBestCompanies outputs the employer ranking with its per-dimension means.
func (p *Printer) PrintBestCompanies(companies []types.CompanyRating) {
	if len(companies) == 0 {
		p.printBox("BEST COMPANIES", "No reviews found")
		return
	}

	var sb strings.Builder
	for i, c := range companies {
		sb.WriteString(fmt.Sprintf("#%d  %s (%d reviews)\n", i+1, c.Firm, c.ReviewCount))
		sb.WriteString(fmt.Sprintf("    Overall: %d  WLB: %.2f  Culture: %.2f\n", c.OverallRating, c.WorkLifeBalance, c.CultureValues))
		sb.WriteString(fmt.Sprintf("    Diversity: %.2f  Career: %.2f", c.DiversityInclusion, c.CareerOpp))
		if i < len(companies)-1 {
			sb.WriteString("\n\n")
		}
	}
	p.printBox("BEST COMPANIES", sb.String())
}

// PrintBestCities outputs the city ranking.
func (p *Printer) PrintBestCities(cities []types.CityRating) {
	if len(cities) == 0 {
		p.printBox("BEST CITIES", "No reviews found")
		return
	}

	var sb strings.Builder
	for i, c := range cities {
		sb.WriteString(fmt.Sprintf("#%-2d %-32s %.2f (%d)", i+1, truncate(c.City, 32), c.AverageRating, c.ReviewCount))
		if i < len(cities)-1 {
			sb.WriteString("\n")
		}
	}
	p.printBox("BEST CITIES", sb.String())
}

// PrintJobsWithRating outputs postings for one title and city with their rating.
func (p *Printer) PrintJobsWithRating(title, city string, jobs []types.JobRating) {
	header := fmt.Sprintf("JOBS: %s in %s", title, city)
	if len(jobs) == 0 {
		p.printBox(header, "No matching postings")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Postings: %d\n\n", len(jobs)))
	for i, jr := range jobs {
		sb.WriteString(fmt.Sprintf("• %s  [rating %d]\n", jr.Job.CompanyName, jr.Rating))
		sb.WriteString(fmt.Sprintf("  views: %d", jr.Job.Views))
		if i < len(jobs)-1 {
			sb.WriteString("\n")
		}
	}
	p.printBox(header, sb.String())
}

// PrintLargestEmployersJobs outputs the job expansion of the largest employers.
func (p *Printer) PrintLargestEmployersJobs(jobs []types.JobPosting) {
	if len(jobs) == 0 {
		p.printBox("LARGEST EMPLOYERS' JOBS", "No postings found")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total postings: %d\n\n", len(jobs)))

	count := min(len(jobs), maxItemsToShow)
	for i := 0; i < count; i++ {
		job := jobs[i]
		sb.WriteString(fmt.Sprintf("• [%d] %s - %s", job.CompanyID, job.Title, job.Location))
		if i < count-1 {
			sb.WriteString("\n")
		}
	}
	if len(jobs) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n\n... and %d more postings", len(jobs)-maxItemsToShow))
	}
	p.printBox("LARGEST EMPLOYERS' JOBS", sb.String())
}

// PrintAverageSalary outputs the mean normalized salary for a title.
func (p *Printer) PrintAverageSalary(title string, avg float64) {
	p.printBox("AVERAGE SALARY", fmt.Sprintf("Title:   %s\nAverage: %.2f", title, avg))
}
