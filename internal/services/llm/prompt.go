package llm

// ExtractionSystemPrompt frames the excerpt extraction task. The user prompt
// carries the guest, the numbered pick list, and the time-coded transcript.
const ExtractionSystemPrompt = `You locate film commentary in transcripts of Criterion Closet Picks videos.

In these videos a guest walks the shelves of the Criterion closet and takes
discs home while talking about them. Guests often refer to a film indirectly
("this one", picking it up without naming it), and automatic captions often
misspell titles and names.

For every film in the KNOWN PICKS list, find where the guest talks about it
and return a JSON array with exactly one object per film:

{"film_title": "title exactly as listed", "start_timestamp": 142, "quote": "cleaned verbatim excerpt", "confidence": "high|medium|low|none"}

Rules:
- Films are usually discussed in the order they are picked up.
- Join consecutive segments about the same film into one excerpt. Fix obvious
  caption errors in titles and names but keep the speaker's own words.
- Brief mentions still count; include a short excerpt.
- If a film is never discussed, use confidence "none" and an empty quote.
- Ignore films the guest mentions but does not take.
- high: clearly about this film. medium: probably. low: uncertain.
- start_timestamp is the integer second where the discussion begins.
- Keep each quote under 500 characters.

Respond with the JSON array only.`
