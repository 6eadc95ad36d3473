package gemini

// Instruction is sent with every invoice image.
const Instruction = `Analyze this invoice image. Extract the following fields:
- date: the invoice date, formatted YYYY-MM-DD
- vendor: the name of the shop or company that issued the invoice
- total: the total amount paid, as a number without currency symbol
- currency: the ISO 4217 currency code or symbol
Return a single JSON object with exactly the keys "date", "vendor", "total" and "currency".
If a field is unreadable or missing, set it to null. Do not guess.`
