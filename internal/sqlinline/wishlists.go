package sqlinline

const QInsertWishlist = `--sql 3c80ec13-f398-478b-aaf2-94548166daad
insert into wishlists (id, owner_id, title, description, is_public, category, tags, created_at, updated_at)
values ($1::uuid, $2::uuid, $3::text, $4::text, $5::boolean, $6::text, $7::text[], $8::timestamptz, $8::timestamptz);
`

const QSelectWishlistByID = `--sql dc14f788-ec8f-4d74-a960-d3cc11edbd79
select id::text, owner_id::text, title, description, is_public, category, tags, created_at, updated_at
from wishlists
where id = $1::uuid;
`

const QListWishlistsByOwner = `--sql 015381b1-f37b-4c93-aee3-95cff5e0e1c7
select id::text, owner_id::text, title, description, is_public, category, tags, created_at, updated_at
from wishlists
where owner_id = $1::uuid
order by created_at desc, id;
`

const QListItemsByWishlists = `--sql 67a793fb-3aac-47b0-bd38-fa344484e67b
select wishlist_id::text, id::text, name, description, price::text, currency, image, link, priority,
       status, current_amount::text, purchase_proof_image, purchase_proof_description,
       purchase_proof_date, created_at
from wishlist_items
where wishlist_id = any($1::uuid[])
order by wishlist_id, position;
`

const QListSnapshotsByItems = `--sql 537921e8-86c9-4169-bf44-1b730f564df1
select item_id::text, donation_id::text, donor_id::text, amount::text, message, is_anonymous, donated_at
from item_donations
where item_id = any($1::uuid[])
order by donated_at, donation_id;
`

// QInsertItem appends the item after the last position and touches the
// parent. It returns no row when the wish list does not exist.
const QInsertItem = `--sql 3558203a-4657-457b-9bc2-f63aee2400f9
with parent as (
    update wishlists
    set updated_at = now()
    where id = $2::uuid
    returning id
)
insert into wishlist_items (
    id, wishlist_id, position, name, description, price, currency, image, link, priority,
    status, current_amount, created_at
)
select $1::uuid, parent.id,
       (select coalesce(max(position) + 1, 0) from wishlist_items where wishlist_id = parent.id),
       $3::text, $4::text, $5::numeric, $6::text, $7::text, $8::text, $9::text,
       'active', 0, $10::timestamptz
from parent
returning id::text;
`

const QLocateItem = `--sql c3dc3798-5975-4bd4-a5b5-27e081ac473d
select wi.wishlist_id::text, w.owner_id::text, wi.id::text, wi.name, wi.description, wi.price::text,
       wi.currency, wi.image, wi.link, wi.priority, wi.status, wi.current_amount::text,
       wi.purchase_proof_image, wi.purchase_proof_description, wi.purchase_proof_date, wi.created_at
from wishlist_items wi
join wishlists w on w.id = wi.wishlist_id
where wi.id = $1::uuid;
`

// QApplyFunding records the snapshot and folds its amount into the item in one
// statement. The select locks the item row before the status check, so
// concurrent applies to the same item serialize and each sees the status and
// amount the previous one committed. Duplicate donation ids and items that no
// longer accept funding yield no row.
const QApplyFunding = `--sql fec108b5-ca50-4e0d-9b26-0c2d21d03dcd
with snap as (
    insert into item_donations (donation_id, item_id, donor_id, amount, message, is_anonymous, donated_at)
    select $1::uuid, wi.id, nullif($4::text, '')::uuid, $5::numeric, $6::text, $7::boolean, $8::timestamptz
    from wishlist_items wi
    where wi.id = $3::uuid
      and wi.wishlist_id = $2::uuid
      and wi.status in ('active', 'funded')
    for update of wi
    on conflict (donation_id) do nothing
    returning item_id, amount
)
update wishlist_items wi
set current_amount = wi.current_amount + snap.amount,
    status = case
        when wi.status = 'active' and wi.current_amount + snap.amount >= wi.price then 'funded'
        else wi.status
    end
from snap
where wi.id = snap.item_id
returning wi.id::text, wi.name, wi.description, wi.price::text, wi.currency, wi.image, wi.link,
          wi.priority, wi.status, wi.current_amount::text, wi.purchase_proof_image,
          wi.purchase_proof_description, wi.purchase_proof_date, wi.created_at;
`

// QSelectItemFundingState explains an empty QApplyFunding result.
const QSelectItemFundingState = `--sql 0fa9bf21-dd33-4b5e-8c49-e4361e544b80
select exists (select 1 from item_donations where donation_id = $1::uuid),
       wi.id::text, wi.name, wi.description, wi.price::text, wi.currency, wi.image, wi.link,
       wi.priority, wi.status, wi.current_amount::text, wi.purchase_proof_image,
       wi.purchase_proof_description, wi.purchase_proof_date, wi.created_at
from wishlist_items wi
where wi.id = $3::uuid and wi.wishlist_id = $2::uuid;
`

const QTransitionItem = `--sql 0f847231-fb38-4735-a996-aeec692c268c
update wishlist_items
set status = $4::text,
    purchase_proof_image = coalesce($5::text, purchase_proof_image),
    purchase_proof_description = coalesce($6::text, purchase_proof_description),
    purchase_proof_date = coalesce($7::timestamptz, purchase_proof_date)
where id = $2::uuid and wishlist_id = $1::uuid and status = $3::text
returning id::text, name, description, price::text, currency, image, link, priority, status,
          current_amount::text, purchase_proof_image, purchase_proof_description,
          purchase_proof_date, created_at;
`

const QSelectItem = `--sql d9f4281f-e754-4e00-a4d5-2fa9e34204c1
select id::text, name, description, price::text, currency, image, link, priority, status,
       current_amount::text, purchase_proof_image, purchase_proof_description,
       purchase_proof_date, created_at
from wishlist_items
where id = $2::uuid and wishlist_id = $1::uuid;
`

// Marker for the public wish-list listing assembled with squirrel.
const MarkListPublicWishlists = "521fe458-56b8-44cf-bac2-7fcadb2726e3"
