package sqlinline

const QInsertDonation = `--sql e109764b-493b-409b-9830-6b9878177bd8
insert into donations (
    id, donor_id, recipient_id, wishlist_id, item_id, amount, currency, message, status,
    payment_method, payment_id, fee, is_anonymous, idempotency_key, created_at, updated_at
)
values (
    $1::uuid, nullif($2::text, '')::uuid, $3::uuid, nullif($4::text, '')::uuid, nullif($5::text, '')::uuid,
    $6::numeric, $7::text, $8::text, $9::text, $10::text, $11::text, $12::numeric, $13::boolean,
    nullif($14::text, ''), $15::timestamptz, $15::timestamptz
)
on conflict (idempotency_key) do nothing
returning id::text;
`

const QSelectDonationByID = `--sql 0b8c1481-06e9-4382-98e8-6c941a875541
select id::text, donor_id::text, recipient_id::text, wishlist_id::text, item_id::text,
       amount::text, currency, message, status, payment_method, payment_id, fee::text,
       is_anonymous, idempotency_key, created_at, updated_at
from donations
where id = $1::uuid;
`

const QSelectDonationByIdempotencyKey = `--sql 5b443a54-eef7-47ed-a13f-78aa2376814e
select id::text, donor_id::text, recipient_id::text, wishlist_id::text, item_id::text,
       amount::text, currency, message, status, payment_method, payment_id, fee::text,
       is_anonymous, idempotency_key, created_at, updated_at
from donations
where idempotency_key = $1::text;
`

// QUpdateDonationStatus only matches while the donation is still in the
// observed status, so two concurrent transitions cannot both succeed.
const QUpdateDonationStatus = `--sql 579fd2f1-dbcf-4ef2-8208-fd10beb5490a
update donations
set status = $3::text,
    fee = coalesce($4::numeric, fee),
    updated_at = now()
where id = $1::uuid and status = $2::text
returning id::text, donor_id::text, recipient_id::text, wishlist_id::text, item_id::text,
          amount::text, currency, message, status, payment_method, payment_id, fee::text,
          is_anonymous, idempotency_key, created_at, updated_at;
`

// Markers for donation queries assembled with squirrel.
const (
	MarkListDonations     = "63b28d77-32ee-47e8-8fd3-ebb9c0511d90"
	MarkListDonationStats = "963c80ac-6af3-4971-b4f0-9015f227f335"
)
