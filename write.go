package mongokv

import (
	"context"
	"time"
)

// Add creates or overwrites key through the primary. Once it returns nil,
// every Get from this client observes the new value.
func (c *Client) Add(ctx context.Context, key string, value any) (err error) {
	defer c.m.track(opAdd, time.Now(), &err)
	if err = checkKey(opAdd, key); err != nil {
		return err
	}
	payload, err := c.codec.Encode(value)
	if err != nil {
		return opErr(opAdd, key, ErrEncode, err)
	}
	h, err := c.handle(ctx, opAdd, key, ModePrimary)
	if err != nil {
		return err
	}
	if err := h.col.Upsert(ctx, key, payload); err != nil {
		c.log.Warn("upsert failed", Fields{"key": key, "ns": h.ns, "err": err})
		return c.writeErr(opAdd, key, err)
	}
	if c.near != nil {
		c.near.invalidate(ctx, h.ns, key)
	}
	return nil
}

// Remove deletes key through the primary. Removing an absent key is not an
// error.
func (c *Client) Remove(ctx context.Context, key string) (err error) {
	defer c.m.track(opRemove, time.Now(), &err)
	if err = checkKey(opRemove, key); err != nil {
		return err
	}
	h, err := c.handle(ctx, opRemove, key, ModePrimary)
	if err != nil {
		return err
	}
	if err := h.col.Delete(ctx, key); err != nil {
		c.log.Warn("delete failed", Fields{"key": key, "ns": h.ns, "err": err})
		return c.writeErr(opRemove, key, err)
	}
	if c.near != nil {
		c.near.invalidate(ctx, h.ns, key)
	}
	return nil
}

// RemoveAll deletes every record of the collection through the primary.
func (c *Client) RemoveAll(ctx context.Context) (err error) {
	defer c.m.track(opRemoveAll, time.Now(), &err)
	h, err := c.handle(ctx, opRemoveAll, "", ModePrimary)
	if err != nil {
		return err
	}
	if err := h.col.DeleteAll(ctx); err != nil {
		c.log.Warn("delete all failed", Fields{"ns": h.ns, "err": err})
		return c.writeErr(opRemoveAll, "", err)
	}
	if c.near != nil {
		c.near.bumpEpoch(ctx, h.ns)
	}
	c.log.Info("collection emptied", Fields{"ns": h.ns})
	return nil
}
