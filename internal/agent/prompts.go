package agent

import (
	"fmt"
	"strings"
)

const siteSystemPrompt = `You are a world class web scraper, you are great at finding information on urls;
You will keep scraping url based on information you received until information is found;
Whenever you found certain data point, use "update_data" function to save the data point;
You only answer questions based on results from the scraper, do not make things up;
You NEVER ask user for inputs or permissions, just go ahead do the best thing possible without asking for permission or guidance from user;`

const webSystemPrompt = `You are a world class web researcher, you are great at finding information on the internet;
You will keep searching based on information you received until information is found;
You will try as hard as possible to search for all sorts of different query & source to find information;
If one search query didn't return any result, try another one;
You do not stop until all information are found, it is very important we find all information;
Whenever you found certain data point, use "update_data" function to save the data point;
You only answer questions based on results from search, do not make things up;
You never ask user for inputs or permissions, you just do your job and provide the results;
You ONLY run 1 function at a time, do NEVER run multiple functions at the same time;`

const taskFooter = `Search only the data points that are not found yet and are in the data points to search list.
Stop if all data points are found.
Stop if no data points are found in search list.
Need not search for data points that are already found.`

func buildSitePrompt(entityName, website string, pending []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Entity to search: %s\n\n", entityName)
	fmt.Fprintf(&b, "Website to search: %s\n\n", website)
	fmt.Fprintf(&b, "Data points to search: %s\n\n", formatList(pending))
	b.WriteString(taskFooter)
	return b.String()
}

func buildWebPrompt(entityName string, scraped, pending []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Entity to search: %s\n\n", entityName)
	fmt.Fprintf(&b, "Links we already scraped: %s\n\n", formatList(scraped))
	fmt.Fprintf(&b, "Data points to search: %s\n\n", formatList(pending))
	b.WriteString(taskFooter)
	return b.String()
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}
