package mysql

const getPaymentSQL = `
SELECT session_id, booking_id, amount, currency, status, paid, confirmed_at
FROM payments
WHERE session_id = ?
`

// A session is confirmed once; a replayed insert keeps the first record.
const insertPaymentSQL = `
INSERT INTO payments
  (session_id, booking_id, amount, currency, status, paid, confirmed_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  session_id = session_id
`

const insertOrphansPrefix = "INSERT INTO orphan_images\n  (image_id, reason)\nVALUES "

const insertOrphansOnDup = " ON DUPLICATE KEY UPDATE\n" +
	"  reason      = VALUES(reason),\n" +
	"  seen_at     = CURRENT_TIMESTAMP,\n" +
	"  resolved_at = NULL\n"
