package notes

// DefaultSampleNotes returns the notes inserted into an empty store on first start.
func DefaultSampleNotes() []NoteDraft {
	return []NoteDraft{
		{
			Title:   "Shopping list",
			Content: "Milk, bread, eggs, rice, beans, meat, vegetables, fruit. Also pick up cleaning supplies.",
		},
		{
			Title:   "Team meeting",
			Content: "Meeting at 2pm with the development team. Topics: new project, deadlines, resources needed.",
		},
		{
			Title:   "Weekend ideas",
			Content: "Visit the park with the family, catch a movie, barbecue with friends, start the new book.",
		},
		{
			Title:   "Workout plan",
			Content: "Monday: 30 min walk. Tuesday: gym. Wednesday: yoga. Thursday: run. Friday: gym. Saturday: bike.",
		},
		{
			Title:   "Reminders",
			Content: "Doctor appointment next Tuesday at 9am, renew driver's license, pay the electricity bill, call the dentist.",
		},
	}
}
